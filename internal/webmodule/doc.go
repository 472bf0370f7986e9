// Package webmodule is the HTTP transport for an Egon web module.
//
// Each method performs exactly one GET against the module and returns its
// decoded result. The package holds no session: the token returned by Login
// is passed back into every call and embedded verbatim in the query string.
//
// # Endpoints
//
//	/authorize.html?password=P&user=U         plain-text token, "" or "device=0" on failure
//	/config.html?<token>                      egon_data with elements and groups
//	/state.html?<token>[&group=<id>]          egon_data with element_states
//	/refresh.html?<token>                     "OK"
//	/action.html?action=A&<token>&id=<id>     "OK"
//
// # Encoding
//
// Bodies are Windows-1250 (Central European). They are always decoded with
// that code page, whatever the Content-Type header or XML prolog declares.
//
// # Errors
//
// Failed exchanges return a *DeviceError carrying an ErrorType. Refresh and
// ExecuteAction fold every failure into false, and Authorize folds bad
// credentials and unreachable modules into the same false result; use Login
// when the distinction matters.
package webmodule
