// Package auditor records an audit trail for annotated HTTP handlers.
//
// An Auditor snapshots the request on the serving goroutine, lets the
// handler run, then hands the snapshot to a bounded worker pool that builds
// a flat Record (request fields, response fields, latency, hook extras) and
// passes it to every registered sink. Without sinks each record is written
// as an "audit record" log line.
//
//	a, err := auditor.New(auditor.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	defer a.Close(ctx)
//
//	r := gin.New()
//	r.POST("/api/v1/users", a.Log("CREATE_USER", "Create user"), createUser)
//
// Which fields are recorded is controlled by Options, usually loaded from a
// settings mapping with OptionsFromSettings. Fields that cannot be determined
// are set to Options.NotAvailable.
package auditor
