package option

import "gorm.io/gorm"

type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryFunc func(db *gorm.DB) *gorm.DB

func (f queryFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

func OrderBy(clause string) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB { return db.Order(clause) })
}

// Between restricts column to the half-open range [from, to).
func Between(column string, from, to any) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(column+" >= ? AND "+column+" < ?", from, to)
	})
}

func In(column string, values any) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(column+" IN ?", values)
	})
}
