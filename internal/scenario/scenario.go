// Package scenario loads planning problems from files and writes plans
// back out.
package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"fleetplan/internal/graph"
	"fleetplan/internal/model"
)

// Source supplies a planning problem.
type Source interface {
	Name() string
	Load(ctx context.Context) (model.Problem, error)
}

// Format names a serialization.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("unknown format")

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrUnknownFormat)
}

// FileSource reads a problem from a JSON or YAML file.
type FileSource struct {
	Path string
}

func (f FileSource) Name() string { return "file:" + f.Path }

func (f FileSource) Load(ctx context.Context) (model.Problem, error) {
	format, err := FormatOf(f.Path)
	if err != nil {
		return model.Problem{}, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return model.Problem{}, err
	}
	defer fh.Close()
	p, err := Decode(fh, format)
	if err != nil {
		return model.Problem{}, fmt.Errorf("%s: %w", f.Path, err)
	}
	return p, nil
}

// Decode reads one problem and checks its references.
func Decode(r io.Reader, format Format) (model.Problem, error) {
	var p model.Problem
	switch format {
	case JSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return p, err
		}
	case YAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return p, err
		}
	default:
		return p, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
	return p, Check(p)
}

// Encode writes any schema value (a problem or a plan).
func Encode(w io.Writer, v any, format Format) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%q: %w", format, ErrUnknownFormat)
}

// Check reports structural problems the solver would otherwise silently
// skip: duplicate ids, references to unknown entities or nodes, and negative
// sizes. A known node that no edge reaches is not an error.
func Check(p model.Problem) error {
	var errs []error
	dup := func(kind string, ids []string) {
		seen := map[string]bool{}
		for _, id := range ids {
			if id == "" {
				errs = append(errs, fmt.Errorf("%s with empty id", kind))
			} else if seen[id] {
				errs = append(errs, fmt.Errorf("duplicate %s %q", kind, id))
			}
			seen[id] = true
		}
	}
	var edges []model.Edge
	for _, e := range p.Edges {
		if e.Distance < 0 {
			errs = append(errs, fmt.Errorf("edge %d->%d has negative distance", e.From, e.To))
			continue
		}
		edges = append(edges, e)
	}
	g, err := graph.New(p.Nodes, edges, !p.Unweighted)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}

	var skus, orders, vehicles, warehouses []string
	skuSet, whSet := map[string]bool{}, map[string]bool{}
	for _, s := range p.SKUs {
		skus = append(skus, s.ID)
		skuSet[s.ID] = true
		if s.Weight < 0 || s.Volume < 0 {
			errs = append(errs, fmt.Errorf("sku %q has negative size", s.ID))
		}
	}
	for _, w := range p.Warehouses {
		warehouses = append(warehouses, w.ID)
		whSet[w.ID] = true
		if !g.HasNode(w.Node) {
			errs = append(errs, fmt.Errorf("warehouse %q sits on unknown node %d", w.ID, w.Node))
		}
	}
	for _, o := range p.Orders {
		orders = append(orders, o.ID)
		if !g.HasNode(o.Node) {
			errs = append(errs, fmt.Errorf("order %q targets unknown node %d", o.ID, o.Node))
		}
		for sku := range o.Items {
			if !skuSet[sku] {
				errs = append(errs, fmt.Errorf("order %q requests unknown sku %q", o.ID, sku))
			}
		}
	}
	for _, v := range p.Vehicles {
		vehicles = append(vehicles, v.ID)
		if !whSet[v.HomeWarehouseID] {
			errs = append(errs, fmt.Errorf("vehicle %q has unknown home warehouse %q", v.ID, v.HomeWarehouseID))
		}
		if v.CapWeight < 0 || v.CapVolume < 0 || v.MaxDistance < 0 || v.CostPerDistance < 0 || v.FixedCost < 0 {
			errs = append(errs, fmt.Errorf("vehicle %q has a negative capacity, range or cost", v.ID))
		}
	}
	dup("sku", skus)
	dup("order", orders)
	dup("vehicle", vehicles)
	dup("warehouse", warehouses)
	return errors.Join(errs...)
}
