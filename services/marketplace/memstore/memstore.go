// Package memstore is an in-memory marketplace.Store that enforces the foreign
// keys declared in marketplace.References. Transactions are serialized and roll
// back by restoring a snapshot.
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"seatrail/pkg/apperr"
	"seatrail/services/marketplace"
)

// uniqueKeys lists the unique indexes of each table as column sets.
var uniqueKeys = map[string][][]string{
	marketplace.TableUsers:     {{"email"}},
	marketplace.TableGuides:    {{"user_id"}},
	marketplace.TableReviews:   {{"booking_id"}},
	marketplace.TableNewsLikes: {{"post_id", "user_id"}},
}

type Store struct {
	mu     sync.Mutex
	refs   []marketplace.Reference
	tables map[string]map[uuid.UUID]any
	base   time.Time
	seq    int64
	failOn map[string]error
}

// New returns an empty store for the marketplace schema.
func New() *Store {
	s := &Store{
		refs:   marketplace.References,
		tables: make(map[string]map[uuid.UUID]any, len(marketplace.Tables)),
		base:   time.Now().UTC().Truncate(time.Second),
		failOn: map[string]error{},
	}
	for _, t := range marketplace.Tables {
		s.tables[t] = map[uuid.UUID]any{}
	}
	return s
}

// FailOn makes every later delete from table return err. A nil err clears it.
func (s *Store) FailOn(table string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failOn, table)
		return
	}
	s.failOn[table] = err
}

// Count returns the number of rows in table.
func (s *Store) Count(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables[table])
}

// Dump returns a copy of every row keyed by table and id.
func (s *Store) Dump() map[string]map[uuid.UUID]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clone()
}

func (s *Store) InTx(ctx context.Context, fn func(tx marketplace.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.clone()
	if err := fn(&tx{s: s}); err != nil {
		s.tables = snapshot
		return err
	}
	return nil
}

func (s *Store) clone() map[string]map[uuid.UUID]any {
	out := make(map[string]map[uuid.UUID]any, len(s.tables))
	for table, rows := range s.tables {
		cp := make(map[uuid.UUID]any, len(rows))
		for id, row := range rows {
			cp[id] = row
		}
		out[table] = cp
	}
	return out
}

func (s *Store) tick() time.Time {
	s.seq++
	return s.base.Add(time.Duration(s.seq) * time.Millisecond)
}

func tableOf(row any) string {
	if t, ok := row.(schema.Tabler); ok {
		return t.TableName()
	}
	return ""
}

func (s *Store) rows(table string) (map[uuid.UUID]any, error) {
	rows, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("memstore: unknown table %q", table)
	}
	return rows, nil
}

func (s *Store) insert(ptr any) error {
	table := tableOf(ptr)
	rows, err := s.rows(table)
	if err != nil {
		return err
	}

	stamp(ptr, s.tick(), true)
	row := reflect.ValueOf(ptr).Elem().Interface()
	id := rowID(row)
	if _, exists := rows[id]; exists {
		return apperr.Wrap(gorm.ErrDuplicatedKey, apperr.KindConflict, fmt.Sprintf("%s %s already exists", table, id))
	}
	if err := s.checkUnique(table, id, row); err != nil {
		return err
	}
	if err := s.checkParents(table, row); err != nil {
		return err
	}
	rows[id] = row
	return nil
}

func (s *Store) update(ptr any, what string) error {
	table := tableOf(ptr)
	rows, err := s.rows(table)
	if err != nil {
		return err
	}

	id := rowID(ptr)
	if _, exists := rows[id]; !exists {
		return apperr.NotFound("%s %s not found", what, id)
	}
	stamp(ptr, s.tick(), false)
	row := reflect.ValueOf(ptr).Elem().Interface()
	if err := s.checkUnique(table, id, row); err != nil {
		return err
	}
	if err := s.checkParents(table, row); err != nil {
		return err
	}
	rows[id] = row
	return nil
}

func (s *Store) checkUnique(table string, id uuid.UUID, row any) error {
	for _, cols := range uniqueKeys[table] {
		for otherID, other := range s.tables[table] {
			if otherID != id && sameColumns(row, other, cols) {
				return apperr.Wrap(gorm.ErrDuplicatedKey, apperr.KindConflict,
					fmt.Sprintf("%s with %v already exists", table, cols))
			}
		}
	}
	return nil
}

func sameColumns(a, b any, cols []string) bool {
	for _, col := range cols {
		av, _ := column(a, col)
		bv, _ := column(b, col)
		if av.Interface() != bv.Interface() {
			return false
		}
	}
	return true
}

func (s *Store) checkParents(table string, row any) error {
	for _, ref := range s.refs {
		if ref.Table != table {
			continue
		}
		parentID, ok := uuidColumn(row, ref.Column)
		if !ok {
			if ref.Nullable {
				continue
			}
			return fmt.Errorf("memstore: %s.%s is required: %w", table, ref.Column, gorm.ErrForeignKeyViolated)
		}
		if _, exists := s.tables[ref.Parent][parentID]; !exists {
			return fmt.Errorf("memstore: %s.%s references missing %s %s: %w",
				table, ref.Column, ref.Parent, parentID, gorm.ErrForeignKeyViolated)
		}
	}
	return nil
}

func (s *Store) delete(table string, ids []uuid.UUID) (int64, error) {
	if err := s.failOn[table]; err != nil {
		return 0, err
	}
	rows, err := s.rows(table)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, id := range ids {
		if _, exists := rows[id]; !exists {
			continue
		}
		if err := s.deleteRow(table, id); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *Store) deleteRow(table string, id uuid.UUID) error {
	for _, ref := range s.refs {
		if ref.Parent != table {
			continue
		}
		var children []uuid.UUID
		for childID, child := range s.tables[ref.Table] {
			if v, ok := uuidColumn(child, ref.Column); ok && v == id {
				children = append(children, childID)
			}
		}
		if len(children) == 0 {
			continue
		}
		if ref.OnDelete != marketplace.Cascade {
			return fmt.Errorf("memstore: delete %s %s is still referenced from %s.%s: %w",
				table, id, ref.Table, ref.Column, gorm.ErrForeignKeyViolated)
		}
		for _, childID := range children {
			if err := s.deleteRow(ref.Table, childID); err != nil {
				return err
			}
		}
	}
	delete(s.tables[table], id)
	return nil
}

func get[T any](s *Store, table string, id uuid.UUID, what string) (T, error) {
	row, ok := s.tables[table][id]
	if !ok {
		var zero T
		return zero, apperr.NotFound("%s %s not found", what, id)
	}
	return row.(T), nil
}

func list[T any](s *Store, table string, keep func(T) bool) []T {
	var out []T
	for _, row := range s.tables[table] {
		r := row.(T)
		if keep == nil || keep(r) {
			out = append(out, r)
		}
	}
	return out
}
