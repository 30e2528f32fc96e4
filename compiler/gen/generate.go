package gen

import (
	"fmt"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/pgoose/schema/field"
)

const (
	pkgPgoose  = "github.com/syssam/pgoose"
	pkgField   = "github.com/syssam/pgoose/schema/field"
	pkgDecimal = "github.com/shopspring/decimal"
	pkgUUID    = "github.com/google/uuid"
)

// goType returns the Go type a field value is held in.
func goType(f *Field) jen.Code {
	switch f.Type {
	case field.TypeString, field.TypeText:
		return jen.String()
	case field.TypeNumber:
		return jen.Float64()
	case field.TypeBigNumber:
		return jen.Qual(pkgDecimal, "Decimal")
	case field.TypeBoolean:
		return jen.Bool()
	case field.TypeDate:
		return jen.Qual("time", "Time")
	case field.TypeUUID:
		return jen.Qual(pkgUUID, "UUID")
	case field.TypeID:
		return jen.Int64()
	default:
		return jen.Id("any")
	}
}

func structType(f *Field) jen.Code {
	if f.Optional() {
		return jen.Op("*").Add(goType(f))
	}
	return goType(f)
}

// literal renders a declaration value as Go source.
func literal(v any) (jen.Code, error) {
	switch v := v.(type) {
	case nil:
		return jen.Nil(), nil
	case string, bool, int, int64, float64:
		return jen.Lit(v), nil
	default:
		return nil, fmt.Errorf("value %v of type %T cannot be generated", v, v)
	}
}

func (g *Graph) newFile() *jen.File {
	f := jen.NewFilePathName(g.Package, g.PackageName())
	if g.Header != "" {
		f.HeaderComment(g.Header)
	}
	f.ImportName(pkgPgoose, "pgoose")
	f.ImportName(pkgField, "field")
	return f
}

// genType renders the typed record of a model.
func (g *Graph) genType(t *Type) (*jen.File, error) {
	f := g.newFile()
	recv := t.Receiver()

	f.Commentf("%s is a typed record of the %q model.", t.Name, t.Model)
	f.Type().Id(t.Name).StructFunc(func(grp *jen.Group) {
		grp.Id("ID").Int64().Tag(map[string]string{"json": "id,omitempty"})
		for _, fd := range t.Fields {
			tag := fd.Name
			if !fd.Required {
				tag += ",omitempty"
			}
			grp.Id(fd.StructField).Add(structType(fd)).Tag(map[string]string{"json": tag})
		}
	})

	f.Commentf("%s is a list of %s records.", t.Plural(), t.Name)
	f.Type().Id(t.Plural()).Index().Op("*").Id(t.Name)

	schema, err := g.genSchema(t)
	if err != nil {
		return nil, err
	}
	f.Commentf("%sSchema is the schema of the %q model.", t.Name, t.Model)
	f.Var().Id(t.Name + "Schema").Op("=").Add(schema)

	f.Commentf("%sFromInstance copies the values of an instance into a %s.", t.Name, t.Name)
	f.Func().Id(t.Name+"FromInstance").Params(jen.Id("in").Op("*").Qual(pkgPgoose, "Instance")).Op("*").Id(t.Name).BlockFunc(func(grp *jen.Group) {
		grp.Id(recv).Op(":=").Op("&").Id(t.Name).Values(jen.Dict{jen.Id("ID"): jen.Id("in").Dot("ID").Call()})
		for _, fd := range t.Fields {
			get := jen.Id("in").Dot("Get").Call(jen.Lit(fd.Name))
			if fd.IsJSON() {
				grp.Id(recv).Dot(fd.StructField).Op("=").Add(get)
				continue
			}
			value := jen.Id("v")
			if fd.Optional() {
				value = jen.Op("&").Id("v")
			}
			grp.If(jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Add(get).Assert(goType(fd)), jen.Id("ok")).Block(
				jen.Id(recv).Dot(fd.StructField).Op("=").Add(value),
			)
		}
		grp.Return(jen.Id(recv))
	})

	f.Commentf("%sFromInstances converts a list of instances.", t.Plural())
	f.Func().Id(t.Plural()+"FromInstances").Params(jen.Id("ins").Index().Op("*").Qual(pkgPgoose, "Instance")).Id(t.Plural()).Block(
		jen.Id("out").Op(":=").Make(jen.Id(t.Plural()), jen.Len(jen.Id("ins"))),
		jen.For(jen.List(jen.Id("i"), jen.Id("in")).Op(":=").Range().Id("ins")).Block(
			jen.Id("out").Index(jen.Id("i")).Op("=").Id(t.Name+"FromInstance").Call(jen.Id("in")),
		),
		jen.Return(jen.Id("out")),
	)

	f.Comment("Values returns the set fields of the record, keyed by field name. The")
	f.Comment("identity is not included.")
	f.Func().Params(jen.Id(recv).Op("*").Id(t.Name)).Id("Values").Params().Map(jen.String()).Id("any").BlockFunc(func(grp *jen.Group) {
		grp.Id("values").Op(":=").Make(jen.Map(jen.String()).Id("any"), jen.Lit(len(t.Fields)))
		for _, fd := range t.Fields {
			sel := jen.Id(recv).Dot(fd.StructField)
			switch {
			case fd.Optional():
				grp.If(jen.Id(recv).Dot(fd.StructField).Op("!=").Nil()).Block(
					jen.Id("values").Index(jen.Lit(fd.Name)).Op("=").Op("*").Add(sel),
				)
			case fd.IsJSON():
				grp.If(jen.Id(recv).Dot(fd.StructField).Op("!=").Nil()).Block(
					jen.Id("values").Index(jen.Lit(fd.Name)).Op("=").Add(sel),
				)
			default:
				grp.Id("values").Index(jen.Lit(fd.Name)).Op("=").Add(sel)
			}
		}
		grp.Return(jen.Id("values"))
	})
	return f, nil
}

// genSchema renders the MustSchema call declaring the fields of a model.
func (g *Graph) genSchema(t *Type) (jen.Code, error) {
	fields := make([]jen.Code, 0, len(t.Fields))
	for _, fd := range t.Fields {
		c := jen.Qual(pkgField, fd.Builder()).Call(jen.Lit(fd.Name))
		if fd.Required {
			c.Dot("Required").Call()
		}
		if fd.Unique {
			c.Dot("Unique").Call()
		}
		if len(fd.Enum) > 0 {
			values := make([]jen.Code, len(fd.Enum))
			for i, v := range fd.Enum {
				lit, err := literal(v)
				if err != nil {
					return nil, NewSchemaError(t.Model, fd.Name, "enum", err)
				}
				values[i] = lit
			}
			c.Dot("Enum").Call(values...)
		}
		if fd.Default != nil {
			lit, err := literal(fd.Default)
			if err != nil {
				return nil, NewSchemaError(t.Model, fd.Name, "default", err)
			}
			c.Dot("Default").Call(lit)
		}
		if fd.Ref != nil {
			c.Dot("Ref").Call(jen.Lit(fd.Ref.Model))
		}
		fields = append(fields, c)
	}
	return jen.Qual(pkgPgoose, "MustSchema").CallFunc(func(grp *jen.Group) {
		for _, c := range fields {
			grp.Line().Add(c)
		}
		if len(fields) > 0 {
			grp.Line()
		}
	}), nil
}

// genModels renders the package file registering every model.
func (g *Graph) genModels() *jen.File {
	f := g.newFile()
	f.PackageComment(fmt.Sprintf("Package %s holds the typed records of the pgoose models.", g.PackageName()))

	f.Var().Id("declared").Op("=").Index().Struct(
		jen.Id("name").String(),
		jen.Id("schema").Op("*").Qual(pkgPgoose, "Schema"),
	).ValuesFunc(func(grp *jen.Group) {
		for _, t := range g.Nodes {
			grp.Line().Values(jen.Lit(t.Model), jen.Id(t.Name+"Schema"))
		}
		if len(g.Nodes) > 0 {
			grp.Line()
		}
	})

	f.Comment("Define registers every model of the package in the collection, in")
	f.Comment("declaration order. Models defined before a failure are returned with")
	f.Comment("the error.")
	f.Func().Id("Define").Params(
		jen.Id("ctx").Qual("context", "Context"),
		jen.Id("c").Op("*").Qual(pkgPgoose, "Collection"),
	).Params(jen.Index().Op("*").Qual(pkgPgoose, "Model"), jen.Error()).Block(
		jen.Id("models").Op(":=").Make(jen.Index().Op("*").Qual(pkgPgoose, "Model"), jen.Lit(0), jen.Len(jen.Id("declared"))),
		jen.For(jen.List(jen.Id("_"), jen.Id("d")).Op(":=").Range().Id("declared")).Block(
			jen.List(jen.Id("m"), jen.Err()).Op(":=").Id("c").Dot("Define").Call(jen.Id("ctx"), jen.Id("d").Dot("name"), jen.Id("d").Dot("schema")),
			jen.If(jen.Id("m").Op("!=").Nil()).Block(
				jen.Id("models").Op("=").Append(jen.Id("models"), jen.Id("m")),
			),
			jen.If(jen.Err().Op("!=").Nil()).Block(
				jen.Return(jen.Id("models"), jen.Err()),
			),
		),
		jen.Return(jen.Id("models"), jen.Nil()),
	)
	return f
}
