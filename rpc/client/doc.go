// Package client implements a client for the record service line protocol.
//
// A RecordClient owns one connection and exchanges exactly one request line and
// one response line per call. ERROR responses of the server are returned as
// *ResponseError, so callers can branch on the error code:
//
//	c, err := client.Dial(ctx, "localhost:12345", 5*time.Second)
//	if err != nil {
//	  return err
//	}
//	defer c.Quit(ctx)
//
//	rec, err := c.Insert(ctx, record.Record{
//	  Name: "Ana", Dob: record.MustDate("2001-05-03"), Gpa: 3.2,
//	  Sex: record.SexFemale, Major: "CS",
//	})
//	...
//	_, err = c.Find(ctx, 4711)
//	if client.IsCode(err, common.CodeIDNotExist) {
//	  // not found
//	}
//
// Thread Safety:
//
//	A RecordClient may be shared between goroutines, calls are serialized on the
//	underlying connection.
package client
