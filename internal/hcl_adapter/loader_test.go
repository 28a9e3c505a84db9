package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/refinery/internal/registry"
	"github.com/vk/refinery/refinery"
)

const blogManifest = `
refiner "user" {
  description = "A user with their posts."
  template = {
    id   = item.id
    name = upper(item.name)
    tag  = "${try(attr.prefix, "")}${item.name}"
  }

  attachment "posts" {
    refiner = "post"
  }

  attachment "initial" {
    value = substr(item.name, 0, 1)
  }

  attachment "drafts" {
    refiner = "post"
    source  = [for p in item.posts : p if !p.published]
  }
}

refiner "post" {
  template = {
    title = item.title
  }

  attachment "comments" {
    refiner = "comment"
  }
}

refiner "comment" {
  template = {
    body = item.body
  }
}

view "users" {
  refiner    = "user"
  attributes = { prefix = "@" }

  bring "posts" {
    filter = [for p in source : p if p.published]
    bring "comments" {}
  }
  bring "initial" {}
}
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func loadRegistry(t *testing.T, files map[string]string) *registry.Registry {
	t.Helper()
	model, err := NewLoader().Load(context.Background(), writeFiles(t, files))
	require.NoError(t, err)

	reg := registry.New()
	reg.PopulateDefinitionsFromModel(model)
	require.NoError(t, reg.ValidateRegistry(context.Background()))
	return reg
}

func ann() map[string]any {
	return map[string]any{
		"id":   1,
		"name": "ann lee",
		"posts": []any{
			map[string]any{
				"title":     "first",
				"published": true,
				"comments":  []any{map[string]any{"body": "nice"}},
			},
			map[string]any{"title": "second", "published": false},
		},
	}
}

func TestLoad_ModelShape(t *testing.T) {
	model, err := NewLoader().Load(context.Background(), writeFiles(t, map[string]string{
		"blog.hcl":  blogManifest,
		"notes.txt": "not a manifest",
	}))
	require.NoError(t, err)

	var names []string
	for _, def := range model.Definitions {
		names = append(names, def.Name())
	}
	assert.Equal(t, []string{"user", "post", "comment"}, names)
	assert.Equal(t, []string{"drafts", "initial", "posts"}, model.Definitions[0].Attachments())

	view := model.Views["users"]
	require.NotNil(t, view)
	assert.Equal(t, "user", view.Refiner)
	assert.Equal(t, map[string]any{"prefix": "@"}, view.Attributes)
	require.Len(t, view.Relations, 2)
	assert.Equal(t, "posts", view.Relations[0].Name)
	assert.NotNil(t, view.Relations[0].Filter)
	require.Len(t, view.Relations[0].Nested, 1)
	assert.Equal(t, "comments", view.Relations[0].Nested[0].Name)
	assert.Nil(t, view.Relations[1].Filter)
}

func TestLoad_ViewRefinesInManifestOrder(t *testing.T) {
	reg := loadRegistry(t, map[string]string{"blog.hcl": blogManifest})

	ref, err := reg.Open("users")
	require.NoError(t, err)
	got, err := ref.Refine(context.Background(), ann())
	require.NoError(t, err)

	want := refinery.MapOf(
		"id", int64(1),
		"name", "ANN LEE",
		"tag", "@ann lee",
		"posts", []any{
			refinery.MapOf("title", "first", "comments", []any{refinery.MapOf("body", "nice")}),
		},
		"initial", "a",
	)
	if diff := cmp.Diff(want.ToMap(), got.(*refinery.Map).ToMap()); diff != "" {
		t.Errorf("refined output mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"id", "name", "tag", "posts", "initial"}, got.(*refinery.Map).Keys())
}

func TestLoad_SourceExpression(t *testing.T) {
	reg := loadRegistry(t, map[string]string{"blog.hcl": blogManifest})

	ref, err := reg.Open("user", refinery.Rel("drafts"))
	require.NoError(t, err)
	got, err := ref.Refine(context.Background(), []any{ann()})
	require.NoError(t, err)

	require.Len(t, got, 1)
	drafts, ok := got.([]any)[0].(*refinery.Map).Get("drafts")
	require.True(t, ok)
	assert.Equal(t, []any{refinery.MapOf("title", "second")}, drafts)

	tag, _ := got.([]any)[0].(*refinery.Map).Get("tag")
	assert.Equal(t, "ann lee", tag, "no attributes means an empty attr object")
}

func TestLoad_AttachmentsReadAttributesSetAfterBring(t *testing.T) {
	reg := loadRegistry(t, map[string]string{"member.hcl": `
refiner "member" {
  template = {
    tag = attr.prefix
  }

  attachment "label" {
    value = "${attr.prefix}${item.name}"
  }

  attachment "picked" {
    refiner = "entry"
    source  = [for e in item.entries : e if e.kind == attr.kind]
  }
}

refiner "entry" {
  template = {
    title = item.title
  }
}
`})

	ref, err := reg.Open("member", refinery.Rel("label"), refinery.Rel("picked"))
	require.NoError(t, err)
	ref.With(map[string]any{"prefix": "@", "kind": "b"})

	got, err := ref.Refine(context.Background(), map[string]any{
		"name": "ann",
		"entries": []any{
			map[string]any{"kind": "a", "title": "x"},
			map[string]any{"kind": "b", "title": "y"},
		},
	})
	require.NoError(t, err)

	want := refinery.MapOf(
		"tag", "@",
		"label", "@ann",
		"picked", []any{refinery.MapOf("title", "y")},
	)
	assert.Equal(t, want, got)
}

func TestLoad_FilesAcrossDirectoriesLinkUp(t *testing.T) {
	reg := loadRegistry(t, map[string]string{
		"refiners/user.hcl": `
refiner "user" {
  template = { name = item.name }
  attachment "best" {
    refiner = "post"
    source  = try(item.posts[0], null)
  }
}`,
		"refiners/post.hcl": `
refiner "post" {
  template = { title = item.title }
}`,
	})

	ref, err := reg.Open("user", refinery.Rel("best"))
	require.NoError(t, err)

	got, err := ref.Refine(context.Background(), map[string]any{"name": "bo", "posts": []any{}})
	require.NoError(t, err)
	assert.Equal(t, refinery.MapOf("name", "bo", "best", nil), got)
}

func TestLoad_DynamicAndWholeTemplates(t *testing.T) {
	reg := loadRegistry(t, map[string]string{"t.hcl": `
refiner "keyed" {
  template = {
    (item.kind) = item.value
    "static"    = true
  }
}

refiner "whole" {
  template = merge(item, { seen = true })
}

refiner "blank" {}
`})

	ref, err := reg.Open("keyed")
	require.NoError(t, err)
	got, err := ref.Refine(context.Background(), map[string]any{"kind": "colour", "value": "red"})
	require.NoError(t, err)
	assert.Equal(t, refinery.MapOf("colour", "red", "static", true), got)

	ref, err = reg.Open("whole")
	require.NoError(t, err)
	got, err = ref.Refine(context.Background(), map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": int64(1), "seen": true}, got)

	ref, err = reg.Open("blank")
	require.NoError(t, err)
	_, err = ref.Refine(context.Background(), map[string]any{"a": 1})
	require.ErrorIs(t, err, refinery.ErrTemplateNotConfigured)
}

func TestLoad_MaxDepth(t *testing.T) {
	reg := loadRegistry(t, map[string]string{"loop.hcl": `
refiner "node" {
  max_depth = 2
  template  = { id = item.id }
  attachment "child" {
    refiner = "node"
  }
}`})

	ref, err := reg.Open("node", refinery.Nested("child", refinery.Nested("child", refinery.Nested("child", refinery.Rel("child")))))
	require.ErrorIs(t, err, refinery.ErrDepthExceeded)
	assert.Nil(t, ref)
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		files   map[string]string
		wantIs  error
		wantMsg string
	}{
		{
			name:    "syntax error",
			files:   map[string]string{"a.hcl": `refiner "x" {`},
			wantMsg: "failed to parse HCL file",
		},
		{
			name: "refiner and value",
			files: map[string]string{"a.hcl": `
refiner "x" {
  attachment "y" {
    refiner = "x"
    value   = 1
  }
}`},
			wantIs:  ErrInvalidManifest,
			wantMsg: "sets both refiner and value",
		},
		{
			name: "neither refiner nor value",
			files: map[string]string{"a.hcl": `
refiner "x" {
  attachment "y" {
  }
}`},
			wantIs:  ErrInvalidManifest,
			wantMsg: "needs a refiner or a value",
		},
		{
			name: "source with value",
			files: map[string]string{"a.hcl": `
refiner "x" {
  attachment "y" {
    value  = 1
    source = item.y
  }
}`},
			wantIs:  ErrInvalidManifest,
			wantMsg: "cannot combine source with value",
		},
		{
			name: "duplicate refiner across files",
			files: map[string]string{
				"a.hcl": `refiner "x" {}`,
				"b.hcl": `refiner "x" {}`,
			},
			wantIs:  ErrInvalidManifest,
			wantMsg: "already defined",
		},
		{
			name:    "duplicate attachment",
			files:   map[string]string{"a.hcl": "refiner \"x\" {\nattachment \"y\" { value = 1 }\nattachment \"y\" { value = 2 }\n}"},
			wantIs:  ErrInvalidManifest,
			wantMsg: "more than once",
		},
		{
			name:    "duplicate template key",
			files:   map[string]string{"a.hcl": "refiner \"x\" {\ntemplate = {\na = 1\n\"a\" = 2\n}\n}"},
			wantIs:  ErrInvalidManifest,
			wantMsg: "key 'a' more than once",
		},
		{
			name:    "bad max depth",
			files:   map[string]string{"a.hcl": `refiner "x" { max_depth = 0 }`},
			wantIs:  ErrInvalidManifest,
			wantMsg: "max_depth",
		},
		{
			name:    "attributes not an object",
			files:   map[string]string{"a.hcl": "view \"v\" {\nrefiner = \"x\"\nattributes = [1]\n}"},
			wantIs:  ErrInvalidManifest,
			wantMsg: "must be an object",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader().Load(context.Background(), writeFiles(t, tc.files))
			require.Error(t, err)
			if tc.wantIs != nil {
				require.ErrorIs(t, err, tc.wantIs)
			}
			require.ErrorContains(t, err, tc.wantMsg)
		})
	}
}

func TestLoad_UnknownTargetFailsValidation(t *testing.T) {
	model, err := NewLoader().Load(context.Background(), writeFiles(t, map[string]string{"a.hcl": `
refiner "user" {
  template = { id = item.id }
  attachment "posts" {
    refiner = "post"
  }
}`}))
	require.NoError(t, err)

	reg := registry.New()
	reg.PopulateDefinitionsFromModel(model)
	err = reg.ValidateRegistry(context.Background())
	require.ErrorIs(t, err, refinery.ErrAttachmentTargetNotFound)
}

func TestLoad_MissingPathIsNotAnError(t *testing.T) {
	model, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, model.Definitions)
	assert.Empty(t, model.Views)
}
