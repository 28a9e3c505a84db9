package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// RefinerBlock is a `refiner` block: a template and the attachments it can
// bring.
type RefinerBlock struct {
	Name        string             `hcl:"name,label"`
	Description string             `hcl:"description,optional"`
	Template    hcl.Expression     `hcl:"template,optional"`
	MaxDepth    *int               `hcl:"max_depth,optional"`
	Attachments []*AttachmentBlock `hcl:"attachment,block"`
}

// AttachmentBlock declares one attachment. Either Refiner (optionally with
// Source) or Value must be set.
type AttachmentBlock struct {
	Name    string         `hcl:"name,label"`
	Refiner *string        `hcl:"refiner,optional"`
	Source  hcl.Expression `hcl:"source,optional"`
	Value   hcl.Expression `hcl:"value,optional"`
}

// ViewBlock is a `view` block: a refiner opened with fixed relations and
// attributes.
type ViewBlock struct {
	Name        string         `hcl:"name,label"`
	Description string         `hcl:"description,optional"`
	Refiner     string         `hcl:"refiner"`
	Attributes  hcl.Expression `hcl:"attributes,optional"`
	Bring       []*BringBlock  `hcl:"bring,block"`
}

// BringBlock is one relation of a view, possibly filtered, possibly
// bringing further relations on the nested refiner.
type BringBlock struct {
	Name   string         `hcl:"name,label"`
	Filter hcl.Expression `hcl:"filter,optional"`
	Bring  []*BringBlock  `hcl:"bring,block"`
}
