// Package gametester provides a client for the GameTester developer API.
//
// The GameTester API lets a game report player progress to a running
// playtest. A game is registered by its developer token; the individual
// player is identified either by the pin shown in the GameTester app or by
// a player token.
//
// # Authentication
//
// Every request carries the developer token and exactly one player
// credential:
//   - developerToken: identifies the registered game
//   - playerPin or playerToken: identifies the player, whichever was set last
//
// # Basic Usage
//
//	session := gametester.NewSession()
//	session.Initialize(gametester.ModeSandbox, "your-developer-token")
//	session.SetPlayerPin("4321")
//
//	client := gametester.NewClient(session, nil)
//
//	// Authenticate the player
//	resp := client.Auth(ctx)
//
//	// Report datapoint 7
//	resp = client.Datapoint(ctx, 7)
//
//	// Take the test out of its setup state
//	resp = client.UnlockTest(ctx)
//
// Each operation also has an asynchronous form that runs the request on its
// own goroutine and calls back exactly once:
//
//	future := client.DatapointAsync(ctx, 7, func(resp gametester.Response) {
//	    log.Println(resp)
//	})
//	<-future.Done()
//
// # Error Handling
//
// Operations never return a Go error. Every outcome, including transport
// failures and unparseable replies, is a Response carrying a code:
//
//	resp := client.UnlockTest(ctx)
//	switch resp.Code {
//	case gametester.CodeSuccess:
//	    // Unlocked
//	case gametester.CodeTestAlreadyUnlocked:
//	    // Nothing to do
//	case gametester.CodeHTTPError:
//	    // Network failure or non-2xx status, see resp.Message
//	}
//
// Codes the client does not know about are preserved as their raw integer
// value; Response.Err converts a failure into an error for errors.As.
package gametester
