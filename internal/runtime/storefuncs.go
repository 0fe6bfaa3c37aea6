package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/schematic/internal/store"
)

// makeIndexedConnectionsFn returns the connections to a net as stored in
// the index for one snapshot, including every device on the net rather than
// only the first used one.
//
// indexed_connections(net) → [{device, status, function, peripheral, signal}]
func makeIndexedConnectionsFn(s *store.Store, snapshotID int64) *object.Builtin {
	return object.NewBuiltin("indexed_connections", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("indexed_connections", 1, len(args))
		}
		net, err := toString(args[0])
		if err != nil {
			return object.Errorf("indexed_connections: %v", err)
		}
		conns, err := s.ConnectionsByNet(snapshotID, net)
		if err != nil {
			return object.Errorf("indexed_connections: %v", err)
		}
		results := make([]object.Object, 0, len(conns))
		for _, c := range conns {
			results = append(results, object.NewMap(map[string]object.Object{
				"device":     object.NewString(c.Device),
				"status":     object.NewString(c.Status),
				"function":   object.NewString(c.Function),
				"peripheral": object.NewString(c.Peripheral),
				"signal":     stringOrNil(c.Signal),
			}))
		}
		return object.NewList(results)
	})
}

// makeIndexedNetsFn returns the combined net space stored for one snapshot.
//
// indexed_nets() → [{pin, owner, pinmux}]
func makeIndexedNetsFn(s *store.Store, snapshotID int64) *object.Builtin {
	return object.NewBuiltin("indexed_nets", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("indexed_nets", 0, len(args))
		}
		nets, err := s.NetsBySnapshot(snapshotID)
		if err != nil {
			return object.Errorf("indexed_nets: %v", err)
		}
		results := make([]object.Object, 0, len(nets))
		for _, n := range nets {
			pinmux := make([]object.Object, 0, len(n.Pinmux))
			for _, fn := range n.Pinmux {
				pinmux = append(pinmux, object.NewString(fn))
			}
			results = append(results, object.NewMap(map[string]object.Object{
				"pin":    object.NewString(n.Net),
				"owner":  stringOrNil(n.Owner),
				"pinmux": object.NewList(pinmux),
			}))
		}
		return object.NewList(results)
	})
}

// makeDBQueryFn runs read-only SQL against the index and returns one map
// per row keyed by column name. Statements must start with SELECT and run
// on a connection with query_only set.
//
// db_query(sql, args...) → [{column: value}]
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		query, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}
		if !readOnly(query) {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		params := make([]any, 0, len(args)-1)
		for _, arg := range args[1:] {
			params = append(params, objectToSQL(arg))
		}

		conn, err := s.DB().Conn(ctx)
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}
		defer conn.Close()
		// A multi-statement string runs every statement, so the SELECT prefix
		// alone does not keep writes out.
		if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
			return object.Errorf("db_query: %v", err)
		}
		defer conn.ExecContext(context.Background(), "PRAGMA query_only = OFF")

		rows, err := conn.QueryContext(ctx, query, params...)
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return object.Errorf("db_query: columns: %v", err)
		}
		results := []object.Object{}
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		for rows.Next() {
			if err := rows.Scan(dest...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		return object.NewList(results)
	})
}

func readOnly(query string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT")
}

// objectToSQL converts a Risor argument to a database/sql parameter.
func objectToSQL(obj object.Object) any {
	switch v := obj.(type) {
	case *object.NilType:
		return nil
	case *object.Int:
		return v.Value()
	case *object.Float:
		return v.Value()
	case *object.Bool:
		return v.Value()
	case *object.String:
		return v.Value()
	}
	return obj.Inspect()
}

// sqlValueToObject converts a scanned column value to a Risor object.
func sqlValueToObject(v any) object.Object {
	switch val := v.(type) {
	case nil:
		return object.Nil
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case bool:
		return object.NewBool(val)
	case string:
		return object.NewString(val)
	case []byte:
		return object.NewString(string(val))
	}
	return object.NewString(fmt.Sprint(v))
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
