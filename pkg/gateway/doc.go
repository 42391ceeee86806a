// Package gateway provides typed access to the backend HTTP surface of the
// application under test.
//
// A Client owns one request context with an explicit lifecycle:
//
//	client := gateway.NewClient("https://automationexercise.com/api/")
//	if err := client.Init(); err != nil {
//	    return err
//	}
//	defer client.Dispose()
//
//	env, err := gateway.NewAccounts(client).Create(ctx, account)
//
// Every call yields an Envelope carrying the transport status and, separately,
// the backend's application code. Application failures are data: callers branch
// on Envelope.Affirmative or Envelope.Failure. Only transport failures and use
// outside the Init/Dispose window are returned as errors. The client never
// retries, since repeated account creation has observable side effects.
package gateway
