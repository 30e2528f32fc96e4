package sql

import (
	"testing"

	"github.com/syssam/pgoose/dialect"
)

var benchDialects = []string{dialect.SQLite, dialect.MySQL, dialect.Postgres}

func BenchmarkInsertBuilder(b *testing.B) {
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				Dialect(d).Insert("users").
					Columns("name", "age", "email", "active", "created_at").
					Values("Ariel", 30, "a8m@example.com", keyword("TRUE"), "2009-11-10 23:00:00+00:00").
					Returning("*").
					Query()
			}
		})
	}
}

func BenchmarkSelectBuilder_Populate(b *testing.B) {
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				pets, owner := Table("pets"), Table("users").As("owner")
				Dialect(d).Select(pets.C("id"), pets.C("name"), pets.C("owner")).
					AppendSelectAs(owner.C("id"), "owner__id").
					AppendSelectAs(owner.C("name"), "owner__name").
					From(pets).
					LeftJoin(owner).On(owner.C("id"), pets.C("owner")).
					Where(EQ(pets.C("name"), "rex")).
					OrderBy(Desc(pets.C("id"))).
					Limit(10).
					Query()
			}
		})
	}
}

func BenchmarkSelectBuilder_Criteria(b *testing.B) {
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				Dialect(d).Select("*").
					From(Table("users")).
					Where(And(
						GT("age", 18),
						ILike("name", "%doe%"),
						In("role", "admin", "user"),
						Between("score", 1, 100),
					)).
					Limit(100).
					Offset(50).
					Query()
			}
		})
	}
}

func BenchmarkUpdateBuilder(b *testing.B) {
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				Dialect(d).Update("users").
					Set("name", "John").
					Set("age", 31).
					Where(EQ("id", 1)).
					Returning("*").
					Query()
			}
		})
	}
}
