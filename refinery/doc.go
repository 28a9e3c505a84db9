// Package refinery turns raw records into presentation-ready shapes.
//
// A Definition pairs a Template, which maps one raw item to its base
// shape, with named attachment handlers. Each handler declares how to
// produce one extra piece of output: either directly from the raw item
// (a raw attachment) or by refining a related sub-structure with another
// Definition (a nested attachment).
//
//	post := refinery.Define("post", func(r *refinery.Refiner, item record.Item) (any, error) {
//		title, _ := item.Get("title")
//		return refinery.MapOf("title", title), nil
//	})
//	user := refinery.Define("user", userTemplate).
//		Handle("posts", func(r *refinery.Refiner) (refinery.Attachment, error) {
//			return r.Attach(post)
//		})
//
//	r := user.New().With(map[string]any{"locale": "en"})
//	if err := r.Bring(refinery.Filtered("posts", onlyPublished)); err != nil {
//		return err
//	}
//	out, err := r.Refine(ctx, rawUser)
//
// Refine decides between a single item and a collection. Sequences are
// collections; associative values are collections only when every element
// is itself composite, so a flat record of scalars is always one item.
// Attachments are resolved in the order they were brought and merged into
// the template output, with attachment keys winning on collisions. An
// absent attachment source yields a nil entry, never an error.
package refinery
