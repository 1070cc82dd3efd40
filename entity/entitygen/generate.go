package entitygen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"
)

const (
	entityPkg = "github.com/syssam/sqlassist/entity"
	assistPkg = "github.com/syssam/sqlassist/assist"
)

// Header is the comment at the top of every generated file.
const Header = "Code generated by sqlassist-gen. DO NOT EDIT."

var baseTypes = map[string]func() *jen.Statement{
	"bool":    jen.Bool,
	"bytes":   func() *jen.Statement { return jen.Index().Byte() },
	"float64": jen.Float64,
	"int":     jen.Int,
	"int32":   jen.Int32,
	"int64":   jen.Int64,
	"string":  jen.String,
	"time":    func() *jen.Statement { return jen.Qual("time", "Time") },
	"uint64":  jen.Uint64,
	"uuid":    func() *jen.Statement { return jen.Qual("github.com/google/uuid", "UUID") },
}

// Generate writes one file per entity of m into dir. Files are generated in
// parallel.
func Generate(ctx context.Context, m *Manifest, dir string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("entitygen: create output directory: %w", err)
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for _, e := range m.Entities {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, FileName(e))
			src, err := Render(m.Package, e)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, src, 0o644); err != nil {
				return fmt.Errorf("entitygen: write %s: %w", path, err)
			}
			return nil
		})
	}
	return eg.Wait()
}

// FileName returns the name of the file generated for e.
func FileName(e *Entity) string {
	return inflect.Underscore(e.Name) + "_sqlassist.go"
}

// Render returns the formatted source of e in package pkg.
func Render(pkg string, e *Entity) ([]byte, error) {
	f := jen.NewFile(pkg)
	f.HeaderComment(Header)
	genStruct(f, e)
	genDescriptor(f, e)
	genBinder(f, e)
	genFields(f, e)
	f.Func().Id("init").Params().Block(
		jen.Qual(entityPkg, "MustRegister").Types(jen.Id(e.Name)).Call(
			jen.Id(e.Name+"Descriptor"),
			jen.Id(e.Name+"Binder"),
		),
	)
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("entitygen: render %s: %w", e.Name, err)
	}
	src, err := imports.Process(FileName(e), buf.Bytes(), nil)
	if err != nil {
		return nil, fmt.Errorf("entitygen: format %s: %w", e.Name, err)
	}
	return src, nil
}

func fieldType(c *Column) *jen.Statement {
	t := baseTypes[c.Type]()
	if c.Nullable && c.Type != "bytes" {
		return jen.Op("*").Add(t)
	}
	return t
}

func genStruct(f *jen.File, e *Entity) {
	f.Commentf("%s is a record of the %q table.", e.Name, e.Table)
	f.Type().Id(e.Name).StructFunc(func(g *jen.Group) {
		for _, c := range e.Columns {
			db, js := c.Name, c.Name
			if c.PrimaryKey {
				db += ",pk"
			}
			if c.Nullable {
				js += ",omitempty"
			}
			g.Id(c.Field).Add(fieldType(c)).Tag(map[string]string{"db": db, "json": js})
		}
	})
	f.Comment("TableName implements entity.Tabler.")
	f.Func().Params(jen.Id(e.Name)).Id("TableName").Params().String().Block(
		jen.Return(jen.Lit(e.Table)),
	)
}

func genDescriptor(f *jen.File, e *Entity) {
	f.Commentf("%sDescriptor describes the %q table.", e.Name, e.Table)
	f.Var().Id(e.Name+"Descriptor").Op("=").Qual(entityPkg, "MustNew").CallFunc(func(g *jen.Group) {
		g.Line().Lit(e.Table)
		for _, c := range e.Columns {
			d := jen.Dict{
				jen.Id("Name"):     jen.Lit(c.Name),
				jen.Id("Property"): jen.Lit(c.Field),
			}
			if c.PrimaryKey {
				d[jen.Id("PrimaryKey")] = jen.True()
			}
			g.Line().Qual(entityPkg, "Column").Values(d)
		}
		g.Line()
	})
}

func genBinder(f *jen.File, e *Entity) {
	f.Commentf("%sBinder binds %s values and pointers without reflection.", e.Name, e.Name)
	f.Var().Id(e.Name+"Binder").Op("=").Qual(entityPkg, "BinderFunc").Call(
		jen.Func().Params(jen.Id("v").Any()).Params(jen.Qual(entityPkg, "Record"), jen.Error()).Block(
			jen.Var().Id("r").Op("*").Id(e.Name),
			jen.Switch(jen.Id("v").Op(":=").Id("v").Assert(jen.Type())).Block(
				jen.Case(jen.Op("*").Id(e.Name)).Block(jen.Id("r").Op("=").Id("v")),
				jen.Case(jen.Id(e.Name)).Block(jen.Id("r").Op("=").Op("&").Id("v")),
			),
			jen.If(jen.Id("r").Op("==").Nil()).Block(
				jen.Return(jen.Nil(), jen.Qual("fmt", "Errorf").Call(jen.Lit("bind "+e.Name+": unexpected value %T"), jen.Id("v"))),
			),
			jen.Return(jen.Qual(entityPkg, "Record").ValuesFunc(func(g *jen.Group) {
				for _, c := range e.Columns {
					g.Line().Values(jen.Dict{
						jen.Id("Column"): jen.Lit(c.Name),
						jen.Id("Value"):  jen.Id("r").Dot(c.Field),
					})
				}
				g.Line()
			}), jen.Nil()),
		),
	)
}

func genFields(f *jen.File, e *Entity) {
	f.Commentf("Columns of the %q table, for building conditions.", e.Table)
	f.Var().DefsFunc(func(g *jen.Group) {
		for _, c := range e.Columns {
			g.Id(e.Name+c.Field).Op("=").Qual(assistPkg, "Field").Types(baseTypes[c.Type]()).Call(jen.Lit(c.Name))
		}
	})
}
