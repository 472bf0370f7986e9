// Package discovery locates an Egon web module on the local network.
//
// The module answers a UDP broadcast probe. The client binds a UDP socket,
// sends the ASCII probe "EGO-N?" to port 2007 of the broadcast address and
// waits for a reply of the form:
//
//	EGO-N,MAC=00:1E:C0:11:22:33,PORT=80,IPADDR=192.168.1.20,MASK=255.255.255.0,GATEWAY=192.168.1.1,DNS1=192.168.1.1,VERSION=1.07
//
// # Discovery Process
//
//  1. Bind a UDP socket (local port 2008 by default, 0 for ephemeral)
//  2. Send the probe to <broadcast>:2007
//  3. Ignore our own probe when it is echoed back
//  4. Discard malformed replies and keep listening
//  5. Return the first well-formed reply as a Descriptor
//
// If nothing valid arrives before the timeout, Probe returns (nil, nil):
// not finding a module is an ordinary outcome, not an error.
//
// # Usage Example
//
//	desc, err := discovery.Discover(ctx, "192.168.1.255", 10*time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if desc == nil {
//	    fmt.Println("No module found")
//	    return
//	}
//	fmt.Printf("Found %s at %s\n", desc.MAC, desc.IPAddr)
//
// # Thread Safety
//
// Only one discovery may be in flight per process. Replies arrive on a
// single receive port and cannot be told apart between concurrent probes, so
// the Coordinator holds a single-permit semaphore for the whole socket
// lifecycle and concurrent callers wait their turn.
package discovery
