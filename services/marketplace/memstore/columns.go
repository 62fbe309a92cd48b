package memstore

import (
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/schema"
)

var (
	naming    = schema.NamingStrategy{}
	uuidType  = reflect.TypeOf(uuid.UUID{})
	uuidPtr   = reflect.TypeOf((*uuid.UUID)(nil))
	timeType  = reflect.TypeOf(time.Time{})
	fieldMu   sync.Mutex
	fieldIdxs = map[reflect.Type]map[string]int{}
)

// fields maps snake_case column names to struct field indexes using gorm's naming strategy.
func fields(t reflect.Type) map[string]int {
	fieldMu.Lock()
	defer fieldMu.Unlock()

	if idx, ok := fieldIdxs[t]; ok {
		return idx
	}
	idx := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		idx[naming.ColumnName("", f.Name)] = i
	}
	fieldIdxs[t] = idx
	return idx
}

func column(row any, name string) (reflect.Value, bool) {
	v := reflect.ValueOf(row)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	i, ok := fields(v.Type())[name]
	if !ok {
		return reflect.Value{}, false
	}
	return v.Field(i), true
}

// uuidColumn reads a uuid or *uuid column. ok is false for a nil pointer or a missing column.
func uuidColumn(row any, name string) (uuid.UUID, bool) {
	f, ok := column(row, name)
	if !ok {
		return uuid.Nil, false
	}
	switch f.Type() {
	case uuidType:
		return f.Interface().(uuid.UUID), true
	case uuidPtr:
		if f.IsNil() {
			return uuid.Nil, false
		}
		return *f.Interface().(*uuid.UUID), true
	}
	return uuid.Nil, false
}

func rowID(row any) uuid.UUID {
	id, _ := uuidColumn(row, "id")
	return id
}

// stamp fills the id and timestamp columns the way gorm does on create and update.
func stamp(ptr any, now time.Time, creating bool) {
	v := reflect.ValueOf(ptr).Elem()
	idx := fields(v.Type())

	if i, ok := idx["id"]; ok && creating {
		if f := v.Field(i); f.Interface().(uuid.UUID) == uuid.Nil {
			f.Set(reflect.ValueOf(uuid.New()))
		}
	}
	if i, ok := idx["created_at"]; ok && creating {
		if f := v.Field(i); f.Type() == timeType && f.Interface().(time.Time).IsZero() {
			f.Set(reflect.ValueOf(now))
		}
	}
	if i, ok := idx["updated_at"]; ok {
		if f := v.Field(i); f.Type() == timeType {
			f.Set(reflect.ValueOf(now))
		}
	}
}
