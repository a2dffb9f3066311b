// Package geonotes is the composition root of GeoNotes 98, a local-first
// note-taking desk.
//
// It wires a desk store (a directory of snapshot generations, or memory) to
// the desk operations and to the time-capsule subsystem, which exports the
// whole desk as one self-describing HTML file and imports such a file back
// with all-or-nothing replacement.
//
// Usage:
//
//	desk, err := geonotes.New("./desk",
//		geonotes.WithAutoInit(true),
//		geonotes.WithLogger(logger),
//	)
//
//	note, err := desk.Desk.CreateNote(ctx, "groceries")
//
//	svc, err := desk.Capsule(ctx)
//	outcome, bundle, err := svc.Export(ctx, delivery.NewFileDelivery(delivery.FixedPath("."), logger))
package geonotes
