// Package egon orchestrates a session with an Egon web module.
//
// A Client is built from a discovery.Descriptor and a set of credentials.
// The module never tells the client when a token expires, so every stateful
// call logs in again before it does anything else.
//
// # Lifecycle
//
//	desc, _ := discovery.Discover(ctx, "192.168.1.255", 10*time.Second)
//	client := egon.NewClient(desc, "admin", password)
//
//	cfg, err := client.Initialize(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for range time.Tick(2 * time.Second) {
//	    delta, err := client.GetCurrentState(ctx, cfg)
//	    if err != nil {
//	        continue
//	    }
//	    for _, change := range delta {
//	        fmt.Println(change)
//	    }
//	}
//
// # Retries
//
// Only the configuration bootstrap retries. The inventory is fetched up to
// ten times, three seconds apart; each group's states get the same budget
// and a group that never reports states is dropped. Polls and actions fail
// straight back to the caller.
//
// # Concurrency
//
// GetCurrentState holds a per-client lock for the whole login, refresh,
// fetch and diff sequence, so two polls never interleave their writes into
// a Configuration. Readers of a Configuration see a consistent element set
// at all times.
package egon
