package refinery_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/refinery/record"
	"github.com/vk/refinery/refinery"
	"github.com/zclconf/go-cty/cty"
)

// --- Fixtures ---

func fooBarDefinition() *refinery.Definition {
	return refinery.Define("foobar", func(r *refinery.Refiner, item record.Item) (any, error) {
		v, _ := item.Get("foobar")
		return refinery.MapOf("foobar", v), nil
	})
}

// arrayDefinition mirrors a typical refiner over flat records: a few
// copied fields, a constant, a shared attribute and a handful of
// attachments of every kind.
func arrayDefinition() *refinery.Definition {
	fooBar := fooBarDefinition()
	return refinery.Define("array", func(r *refinery.Refiner, item record.Item) (any, error) {
		foo, _ := item.Get("foo")
		bar, _ := item.Get("bar")
		quux, _ := r.Attribute("quux")
		return refinery.MapOf("foo", foo, "bar", bar, "baz", "qux", "quux", quux), nil
	}).
		Handle("fooBarAttach", func(r *refinery.Refiner) (refinery.Attachment, error) {
			return r.Attach(fooBar)
		}).
		Handle("fooBarEmbed", func(r *refinery.Refiner) (refinery.Attachment, error) {
			return r.Embed(fooBar)
		}).
		Handle("fooBarNest", func(r *refinery.Refiner) (refinery.Attachment, error) {
			return r.Nest(fooBar, func(item record.Item) (any, error) {
				return item.Raw(), nil
			})
		}).
		Handle("fooBarRaw", func(r *refinery.Refiner) (refinery.Attachment, error) {
			return r.Attach(func(item record.Item) any {
				foo, _ := item.Get("foo")
				bar, _ := item.Get("bar")
				return fmt.Sprint(foo, bar)
			})
		}).
		Handle("classDoesNotExist", func(r *refinery.Refiner) (refinery.Attachment, error) {
			return r.Attach("NonExistentClass")
		})
}

func rawArray() map[string]any {
	return map[string]any{
		"foo":  "foo",
		"bar":  "bar",
		"foo1": "foo1",
		"bar2": "bar2",
	}
}

type rawObject struct {
	Foo  string
	Bar  string
	Foo1 string
	Bar1 string
}

type post struct {
	Title     string
	Published bool
}

type author struct {
	Name     string
	PostList []post `refinery:"posts"`
}

// Posts is the query form of the posts relation.
func (a author) Posts() []post {
	return []post{{Title: "a", Published: true}, {Title: "b"}}
}

func postDefinition() *refinery.Definition {
	return refinery.Define("post", func(r *refinery.Refiner, item record.Item) (any, error) {
		title, _ := item.Get("title")
		return refinery.MapOf("title", title), nil
	})
}

func onlyPublished(source any) (any, error) {
	posts, ok := source.([]post)
	if !ok {
		return nil, fmt.Errorf("unexpected source %T", source)
	}
	var out []post
	for _, p := range posts {
		if p.Published {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- Single items and collections ---

func TestRefine_Array(t *testing.T) {
	out, err := arrayDefinition().New().Refine(context.Background(), rawArray())
	require.NoError(t, err)

	refined, ok := out.(*refinery.Map)
	require.True(t, ok, "expected *refinery.Map, got %T", out)
	assert.Equal(t, []string{"foo", "bar", "baz", "quux"}, refined.Keys())
	assert.False(t, refined.Has("foo1"))
	v, _ := refined.Get("foo")
	assert.Equal(t, "foo", v)
}

func TestRefine_Object(t *testing.T) {
	raw := &rawObject{Foo: "foo", Bar: "bar", Foo1: "foo1", Bar1: "bar1"}

	out, err := arrayDefinition().New().Refine(context.Background(), raw)
	require.NoError(t, err)

	expected := refinery.MapOf("foo", "foo", "bar", "bar", "baz", "qux", "quux", nil)
	require.Equal(t, expected, out)
}

func TestRefine_CollectionMatchesPerItemRefine(t *testing.T) {
	ctx := context.Background()
	r := arrayDefinition().New()
	raw := []map[string]any{rawArray(), rawArray(), rawArray()}

	out, err := r.Refine(ctx, raw)
	require.NoError(t, err)

	refined, ok := out.([]any)
	require.True(t, ok)
	require.Len(t, refined, 3)
	for i, item := range raw {
		single, err := r.Refine(ctx, item)
		require.NoError(t, err)
		assert.Equal(t, single, refined[i], "element %d", i)
	}
}

func TestRefine_CollectionOfObjects(t *testing.T) {
	raw := &rawObject{Foo: "foo", Bar: "bar"}

	out, err := arrayDefinition().New().Refine(context.Background(), []*rawObject{raw, raw, raw})
	require.NoError(t, err)
	require.Len(t, out, 3)
}

func TestRefine_Classification(t *testing.T) {
	ctx := context.Background()
	r := refinery.Define("echo", func(r *refinery.Refiner, item record.Item) (any, error) {
		return item.Raw(), nil
	}).New()

	testCases := []struct {
		name           string
		raw            any
		wantCollection bool
	}{
		{name: "map of scalars is one item", raw: map[string]any{"a": 1, "b": "x"}},
		{name: "map mixing scalars and maps is one item", raw: map[string]any{"a": 1, "b": map[string]any{"c": 2}}},
		{name: "map of maps is a collection", raw: map[string]any{"a": map[string]any{"c": 1}, "b": map[string]any{"c": 2}}, wantCollection: true},
		{name: "map of structs is a collection", raw: map[string]post{"x": {Title: "t"}}, wantCollection: true},
		{name: "slice is a collection", raw: []any{map[string]any{"a": 1}}, wantCollection: true},
		{name: "slice of scalars is a collection", raw: []any{"a", "b"}, wantCollection: true},
		{name: "empty map is an empty collection", raw: map[string]any{}, wantCollection: true},
		{name: "struct is one item", raw: post{Title: "t"}},
		{name: "string is one item", raw: "hello"},
		{name: "cty tuple is a collection", raw: cty.TupleVal([]cty.Value{cty.ObjectVal(map[string]cty.Value{"a": cty.True})}), wantCollection: true},
		{name: "cty object of scalars is one item", raw: cty.ObjectVal(map[string]cty.Value{"a": cty.StringVal("x")})},
		{name: "cty object of objects is a collection", raw: cty.ObjectVal(map[string]cty.Value{"a": cty.EmptyObjectVal}), wantCollection: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := r.Refine(ctx, tc.raw)
			require.NoError(t, err)
			_, isSlice := out.([]any)
			assert.Equal(t, tc.wantCollection, isSlice)
		})
	}
}

func TestRefine_AssociativeCollectionOrderAndRetainKeys(t *testing.T) {
	ctx := context.Background()
	r := postDefinition().New()
	raw := map[string]any{
		"second": map[string]any{"title": "b"},
		"first":  map[string]any{"title": "a"},
	}

	out, err := r.Refine(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, []any{refinery.MapOf("title", "a"), refinery.MapOf("title", "b")}, out)

	out, err = r.Refine(ctx, raw, refinery.RetainKeys())
	require.NoError(t, err)
	require.Equal(t, refinery.MapOf(
		"first", refinery.MapOf("title", "a"),
		"second", refinery.MapOf("title", "b"),
	), out)

	out, err = r.Refine(ctx, []any{map[string]any{"title": "x"}}, refinery.RetainKeys())
	require.NoError(t, err)
	require.Equal(t, refinery.MapOf("0", refinery.MapOf("title", "x")), out)
}

func TestRefine_NumericMapKeysSortByValue(t *testing.T) {
	r := postDefinition().New()
	raw := map[int]any{
		10: map[string]any{"title": "ten"},
		2:  map[string]any{"title": "two"},
		-1: map[string]any{"title": "minus one"},
	}

	out, err := r.Refine(context.Background(), raw, refinery.RetainKeys())
	require.NoError(t, err)
	require.Equal(t, []string{"-1", "2", "10"}, out.(*refinery.Map).Keys())

	out, err = r.Refine(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, []any{
		refinery.MapOf("title", "minus one"),
		refinery.MapOf("title", "two"),
		refinery.MapOf("title", "ten"),
	}, out)
}

func TestRefine_RetainKeysDoesNotReachAttachments(t *testing.T) {
	ctx := context.Background()
	child := postDefinition()
	parent := refinery.Define("parent", func(r *refinery.Refiner, item record.Item) (any, error) {
		return refinery.NewMap(), nil
	}).Handle("kids", func(r *refinery.Refiner) (refinery.Attachment, error) {
		return r.Attach(child)
	})

	r := parent.New()
	require.NoError(t, r.BringNames("kids"))

	raw := map[string]any{
		"p": map[string]any{"kids": map[string]any{
			"k1": map[string]any{"title": "one"},
		}},
	}
	out, err := r.Refine(ctx, raw, refinery.RetainKeys())
	require.NoError(t, err)

	expected := refinery.MapOf("p", refinery.MapOf("kids", []any{refinery.MapOf("title", "one")}))
	require.Equal(t, expected, out)
}

func TestRefine_ConcurrencyKeepsOrder(t *testing.T) {
	raw := make([]any, 50)
	for i := range raw {
		raw[i] = map[string]any{"title": i}
	}

	out, err := postDefinition().New().Refine(context.Background(), raw, refinery.Concurrency(8))
	require.NoError(t, err)

	refined := out.([]any)
	require.Len(t, refined, 50)
	for i, v := range refined {
		title, _ := v.(*refinery.Map).Get("title")
		require.Equal(t, i, title)
	}
}

func TestRefine_ConcurrencyFailsWholeCollection(t *testing.T) {
	boom := errors.New("boom")
	def := refinery.Define("failing", func(r *refinery.Refiner, item record.Item) (any, error) {
		if v, _ := item.Get("bad"); v == true {
			return nil, boom
		}
		return refinery.NewMap(), nil
	})

	raw := []any{map[string]any{"bad": false}, map[string]any{"bad": true}, map[string]any{"bad": false}}
	_, err := def.New().Refine(context.Background(), raw, refinery.Concurrency(2))
	require.ErrorIs(t, err, boom)

	_, err = def.New().Refine(context.Background(), raw)
	require.ErrorIs(t, err, boom)
}

// --- Attachments ---

func TestRefine_EmbedsAttachments(t *testing.T) {
	r := arrayDefinition().New()
	require.NoError(t, r.BringNames("fooBarAttach", "fooBarEmbed", "fooBarNest"))

	out, err := r.Refine(context.Background(), rawArray())
	require.NoError(t, err)

	expected := refinery.MapOf(
		"foo", "foo",
		"bar", "bar",
		"baz", "qux",
		"quux", nil,
		"fooBarAttach", nil,
		"fooBarEmbed", nil,
		"fooBarNest", refinery.MapOf("foobar", nil),
	)
	require.Equal(t, expected, out)
}

func TestRefine_EmbedsFromObject(t *testing.T) {
	type withRelation struct {
		Foo          string
		Bar          string
		FooBarAttach map[string]any
	}
	raw := withRelation{Foo: "foo", Bar: "bar", FooBarAttach: map[string]any{"foobar": "fb"}}

	r := arrayDefinition().New()
	require.NoError(t, r.BringNames("fooBarAttach", "fooBarNest"))

	out, err := r.Refine(context.Background(), raw)
	require.NoError(t, err)

	refined := out.(*refinery.Map)
	attached, _ := refined.Get("fooBarAttach")
	assert.Equal(t, refinery.MapOf("foobar", "fb"), attached)
	nested, _ := refined.Get("fooBarNest")
	assert.Equal(t, refinery.MapOf("foobar", nil), nested)
}

func TestRefine_RawAttachmentBypassesRecursion(t *testing.T) {
	r := arrayDefinition().New()
	require.NoError(t, r.BringNames("fooBarRaw"))

	out, err := r.Refine(context.Background(), rawArray())
	require.NoError(t, err)

	v, ok := out.(*refinery.Map).Get("fooBarRaw")
	require.True(t, ok)
	require.Equal(t, "foobar", v)
}

func TestRefine_AbsentSourceIsNilEntry(t *testing.T) {
	var nilPosts []post
	r := refinery.Define("author", func(r *refinery.Refiner, item record.Item) (any, error) {
		return refinery.NewMap(), nil
	}).Handle("posts", func(r *refinery.Refiner) (refinery.Attachment, error) {
		return r.Attach(postDefinition(), func(item record.Item) (any, error) {
			return nilPosts, nil
		})
	}).New()
	require.NoError(t, r.BringNames("posts"))

	out, err := r.Refine(context.Background(), map[string]any{"name": "x"})
	require.NoError(t, err)

	refined := out.(*refinery.Map)
	v, ok := refined.Get("posts")
	require.True(t, ok, "attachment key must be present")
	require.Nil(t, v)
}

func TestBring_MissingHandler(t *testing.T) {
	r := arrayDefinition().New()
	err := r.BringNames("notSet")
	require.ErrorIs(t, err, refinery.ErrAttachmentHandlerNotFound)
	require.Contains(t, err.Error(), "notSet")
}

func TestBring_MissingTarget(t *testing.T) {
	r := arrayDefinition().New()
	err := r.BringNames("classDoesNotExist")
	require.ErrorIs(t, err, refinery.ErrAttachmentTargetNotFound)
}

func TestAttach_TargetKinds(t *testing.T) {
	r := arrayDefinition().New()

	_, err := r.Attach(42)
	require.ErrorIs(t, err, refinery.ErrAttachmentTargetNotFound)

	var nilDef *refinery.Definition
	_, err = r.Attach(nilDef)
	require.ErrorIs(t, err, refinery.ErrAttachmentTargetNotFound)

	att, err := r.Attach(refinery.RawFunc(func(item record.Item) (any, error) { return 1, nil }))
	require.NoError(t, err)
	require.True(t, att.IsRaw())

	_, err = r.Attach(func(item record.Item) any { return 1 }, func(item record.Item) (any, error) { return nil, nil })
	require.ErrorIs(t, err, refinery.ErrInvalidRelation)
}

func TestRefine_TemplateNotConfigured(t *testing.T) {
	_, err := refinery.Define("empty", nil).New().Refine(context.Background(), rawArray())
	require.ErrorIs(t, err, refinery.ErrTemplateNotConfigured)
}

func TestBring_ReplacesPreviousSet(t *testing.T) {
	r := arrayDefinition().New()
	require.NoError(t, r.BringNames("fooBarAttach", "fooBarRaw"))
	require.NoError(t, r.BringNames("fooBarEmbed"))
	require.Equal(t, []string{"fooBarEmbed"}, r.Brought())

	require.Error(t, r.BringNames("fooBarRaw", "notSet"))
	require.Equal(t, []string{"fooBarEmbed"}, r.Brought(), "a failed Bring must not change the set")
}

func TestBring_DuplicateNameKeepsFirstPosition(t *testing.T) {
	r := arrayDefinition().New()
	require.NoError(t, r.BringNames("fooBarRaw", "fooBarAttach", "fooBarRaw"))
	require.Equal(t, []string{"fooBarRaw", "fooBarAttach"}, r.Brought())
}

func TestBring_RawAttachmentRejectsFilter(t *testing.T) {
	r := arrayDefinition().New()
	err := r.Bring(refinery.Filtered("fooBarRaw", onlyPublished))
	require.ErrorIs(t, err, refinery.ErrInvalidRelation)
}

// --- Filters ---

func TestFilter_RunsOnCallbackResult(t *testing.T) {
	var seen any
	items := []any{map[string]any{"title": "one"}, map[string]any{"title": "two"}}

	def := refinery.Define("holder", func(r *refinery.Refiner, item record.Item) (any, error) {
		return refinery.NewMap(), nil
	}).Handle("posts", func(r *refinery.Refiner) (refinery.Attachment, error) {
		return r.Attach(postDefinition(), func(item record.Item) (any, error) {
			v, _ := item.Get("items")
			return v, nil
		})
	})

	r := def.New()
	require.NoError(t, r.Bring(refinery.Filtered("posts", func(source any) (any, error) {
		seen = source
		return source.([]any)[:1], nil
	})))

	out, err := r.Refine(context.Background(), map[string]any{"items": items, "other": "x"})
	require.NoError(t, err)

	require.Equal(t, items, seen, "filter must receive the callback result, not the raw item")
	posts, _ := out.(*refinery.Map).Get("posts")
	require.Equal(t, []any{refinery.MapOf("title", "one")}, posts)
}

func TestFilter_UsesQueryMethodOnObjects(t *testing.T) {
	def := refinery.Define("author", func(r *refinery.Refiner, item record.Item) (any, error) {
		name, _ := item.Get("name")
		return refinery.MapOf("name", name), nil
	}).Handle("posts", func(r *refinery.Refiner) (refinery.Attachment, error) {
		return r.Attach(postDefinition())
	})
	raw := author{Name: "ann", PostList: []post{{Title: "cached", Published: true}}}

	plain := def.New()
	require.NoError(t, plain.BringNames("posts"))
	out, err := plain.Refine(context.Background(), raw)
	require.NoError(t, err)
	posts, _ := out.(*refinery.Map).Get("posts")
	require.Equal(t, []any{refinery.MapOf("title", "cached")}, posts)

	filtered := def.New()
	require.NoError(t, filtered.Bring(refinery.Filtered("posts", onlyPublished)))
	out, err = filtered.Refine(context.Background(), raw)
	require.NoError(t, err)
	posts, _ = out.(*refinery.Map).Get("posts")
	require.Equal(t, []any{refinery.MapOf("title", "a")}, posts)
}

func TestFilter_DoesNotLeakBetweenSiblings(t *testing.T) {
	child := postDefinition()
	fromItems := func(item record.Item) (any, error) {
		v, _ := item.Get("items")
		return v, nil
	}
	def := refinery.Define("holder", func(r *refinery.Refiner, item record.Item) (any, error) {
		return refinery.NewMap(), nil
	}).
		Handle("all", func(r *refinery.Refiner) (refinery.Attachment, error) { return r.Attach(child, fromItems) }).
		Handle("first", func(r *refinery.Refiner) (refinery.Attachment, error) { return r.Attach(child, fromItems) })

	r := def.New()
	require.NoError(t, r.Bring(
		refinery.Rel("all"),
		refinery.Filtered("first", func(source any) (any, error) { return source.([]any)[:1], nil }),
	))

	raw := []any{
		map[string]any{"items": []any{map[string]any{"title": "a"}, map[string]any{"title": "b"}}},
		map[string]any{"items": []any{map[string]any{"title": "c"}, map[string]any{"title": "d"}}},
	}
	out, err := r.Refine(context.Background(), raw)
	require.NoError(t, err)

	for i, el := range out.([]any) {
		m := el.(*refinery.Map)
		all, _ := m.Get("all")
		first, _ := m.Get("first")
		assert.Len(t, all, 2, "element %d", i)
		assert.Len(t, first, 1, "element %d", i)
	}
}

// --- Attributes and nesting ---

func TestAttributes_ReadableAndPropagated(t *testing.T) {
	readQuux := func(r *refinery.Refiner, item record.Item) (any, error) {
		q, _ := r.Attribute("quux")
		return refinery.MapOf("quux", q), nil
	}
	child := refinery.Define("child", readQuux)
	grandchild := refinery.Define("grandchild", readQuux)
	child.Handle("grandchild", func(r *refinery.Refiner) (refinery.Attachment, error) {
		return r.Attach(grandchild, func(item record.Item) (any, error) { return item.Raw(), nil })
	})
	parent := refinery.Define("parent", readQuux).Handle("child", func(r *refinery.Refiner) (refinery.Attachment, error) {
		return r.Attach(child, func(item record.Item) (any, error) { return item.Raw(), nil })
	})

	r := parent.New()
	require.NoError(t, r.Bring(refinery.Nested("child", refinery.Rel("grandchild"))))
	r.With(map[string]any{"quux": "q1"})

	out, err := r.Refine(context.Background(), map[string]any{"id": 1})
	require.NoError(t, err)

	expected := refinery.MapOf(
		"quux", "q1",
		"child", refinery.MapOf("quux", "q1", "grandchild", refinery.MapOf("quux", "q1")),
	)
	require.Equal(t, expected, out)
}

func TestBring_ParsedRelationChain(t *testing.T) {
	comment := refinery.Define("comment", func(r *refinery.Refiner, item record.Item) (any, error) {
		body, _ := item.Get("body")
		return refinery.MapOf("body", body), nil
	})
	postDef := postDefinition().Handle("comments", func(r *refinery.Refiner) (refinery.Attachment, error) {
		return r.Attach(comment)
	})
	user := refinery.Define("user", func(r *refinery.Refiner, item record.Item) (any, error) {
		name, _ := item.Get("name")
		return refinery.MapOf("name", name), nil
	}).Handle("posts", func(r *refinery.Refiner) (refinery.Attachment, error) {
		return r.Attach(postDef)
	})

	rels, err := refinery.ParseRelations("posts.comments")
	require.NoError(t, err)

	r := user.New()
	require.NoError(t, r.Bring(rels...))

	raw := map[string]any{
		"name": "ann",
		"posts": []any{
			map[string]any{"title": "t1", "comments": []any{map[string]any{"body": "c1"}}},
		},
	}
	out, err := r.Refine(context.Background(), raw)
	require.NoError(t, err)

	expected := refinery.MapOf(
		"name", "ann",
		"posts", []any{refinery.MapOf("title", "t1", "comments", []any{refinery.MapOf("body", "c1")})},
	)
	require.Equal(t, expected, out)

	err = user.New().Bring(refinery.Nested("posts", refinery.Rel("likes")))
	require.ErrorIs(t, err, refinery.ErrAttachmentHandlerNotFound)
}

func TestParseRelations(t *testing.T) {
	rels, err := refinery.ParseRelations("posts.comments", "avatar", "posts.author")
	require.NoError(t, err)
	require.Equal(t, []refinery.Relation{
		{Name: "posts", Nested: []refinery.Relation{{Name: "comments"}, {Name: "author"}}},
		{Name: "avatar"},
	}, rels)

	_, err = refinery.ParseRelations("posts..comments")
	require.ErrorIs(t, err, refinery.ErrInvalidRelation)
}

func TestBring_DepthGuardStopsCycles(t *testing.T) {
	def := refinery.Define("loop", func(r *refinery.Refiner, item record.Item) (any, error) {
		return refinery.NewMap(), nil
	}).SetMaxDepth(5)
	def.Handle("self", func(r *refinery.Refiner) (refinery.Attachment, error) {
		return r.Attach(def)
	})

	rels := []refinery.Relation{{Name: "self"}}
	rels[0].Nested = rels

	err := def.New().Bring(rels...)
	require.ErrorIs(t, err, refinery.ErrDepthExceeded)
}
