// Package view loads and renders the views named by route records.
//
// Views are html/template sources fetched through a Loader, from an fs.FS
// (embedded or on disk) or an S3 bucket. A Registry resolves each view on
// first use and Compose nests a matched chain inside its layouts:
//
//	reg := view.NewRegistry(view.NewFSLoader(views))
//	out, err := reg.Compose(ctx, loc.Views(), data)
//
// A layout places its child with {{.Slot}}.
package view
