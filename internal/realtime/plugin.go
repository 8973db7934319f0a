package realtime

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Plugin publishes every committed insert made through the gorm handle to
// the broker, giving the record store an insert change feed.
func (b *Broker) Plugin() gorm.Plugin {
	return &insertFeed{broker: b}
}

type insertFeed struct {
	broker *Broker
}

func (p *insertFeed) Name() string {
	return "hoko:realtime"
}

func (p *insertFeed) Initialize(db *gorm.DB) error {
	return db.Callback().Create().
		After("gorm:commit_or_rollback_transaction").
		Register("hoko:realtime_publish", p.publish)
}

func (p *insertFeed) publish(db *gorm.DB) {
	if db.Error != nil || db.Statement.Schema == nil {
		return
	}
	stmt := db.Statement
	table := stmt.Table
	if table == "" {
		table = stmt.Schema.Table
	}

	rv := reflect.Indirect(stmt.ReflectValue)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			p.broker.Publish(rowEvent(stmt.Context, stmt.Schema, table, reflect.Indirect(rv.Index(i))))
		}
	case reflect.Struct:
		p.broker.Publish(rowEvent(stmt.Context, stmt.Schema, table, rv))
	}
}

var schemas sync.Map

// EventFor builds the insert event of a model value written outside gorm.
func EventFor(record interface{}) (Event, error) {
	sch, err := schema.Parse(record, &schemas, schema.NamingStrategy{})
	if err != nil {
		return Event{}, err
	}
	return rowEvent(context.Background(), sch, sch.Table, reflect.Indirect(reflect.ValueOf(record))), nil
}

func rowEvent(ctx context.Context, sch *schema.Schema, table string, rv reflect.Value) Event {
	cols := make(map[string]string, len(sch.Fields))
	for _, f := range sch.Fields {
		if f.DBName == "" {
			continue
		}
		v, zero := f.ValueOf(ctx, rv)
		if s, ok := columnText(v, zero); ok {
			cols[f.DBName] = s
		}
	}
	cp := reflect.New(rv.Type())
	cp.Elem().Set(rv)
	return Event{Table: table, Columns: cols, Record: cp.Interface()}
}

func columnText(v interface{}, zero bool) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case *string:
		if x == nil {
			return "", false
		}
		return *x, true
	case nil:
		return "", false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	return fmt.Sprint(rv.Interface()), true
}
