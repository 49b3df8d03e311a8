package query

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// systemSchemas are hidden from ListSchemas.
var systemSchemas = []string{"information_schema", "pg_catalog", "pg_toast"}

// ListSchemas returns user schemas visible on the connection.
func (e *Executor) ListSchemas(ctx context.Context, url string) ([]string, error) {
	qb := psq.Select("schema_name").
		From("information_schema.schemata").
		Where(sq.NotEq{"schema_name": systemSchemas}).
		Where(sq.NotLike{"schema_name": `pg\_temp%`}).
		OrderBy("schema_name")

	return e.listNames(ctx, url, qb, "listing schemas")
}

// ListObjects returns the names of tables, views or sequences in schema.
func (e *Executor) ListObjects(ctx context.Context, url, schema string, objectType ObjectType) ([]string, error) {
	var qb sq.SelectBuilder
	switch objectType {
	case ObjectTable, "":
		qb = tablesOfType(schema, "BASE TABLE")
	case ObjectView:
		qb = tablesOfType(schema, "VIEW")
	case ObjectSequence:
		qb = psq.Select("sequence_name").
			From("information_schema.sequences").
			Where(sq.Eq{"sequence_schema": schema}).
			OrderBy("sequence_name")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownObjectType, objectType)
	}

	return e.listNames(ctx, url, qb, "listing objects")
}

func tablesOfType(schema, tableType string) sq.SelectBuilder {
	return psq.Select("table_name").
		From("information_schema.tables").
		Where(sq.Eq{"table_schema": schema}).
		Where(sq.Eq{"table_type": tableType}).
		OrderBy("table_name")
}

// ObjectDetails returns the columns of a table or view.
func (e *Executor) ObjectDetails(ctx context.Context, url, schema, object string) (*ObjectDetails, error) {
	statement, args, err := psq.Select("column_name", "data_type", "is_nullable", "column_default").
		From("information_schema.columns").
		Where(sq.Eq{"table_schema": schema}).
		Where(sq.Eq{"table_name": object}).
		OrderBy("ordinal_position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building column query: %w", err)
	}

	result, err := e.run(ctx, url, 0, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("describing %s.%s: %w", schema, object, err)
	}
	if result.Count == 0 {
		return nil, fmt.Errorf("%w: %s.%s", ErrObjectNotFound, schema, object)
	}

	details := &ObjectDetails{Schema: schema, Name: object, Columns: make([]Column, 0, result.Count)}
	for _, row := range result.Rows {
		details.Columns = append(details.Columns, Column{
			Name:     textValue(row[0]),
			Type:     textValue(row[1]),
			Nullable: textValue(row[2]) == "YES",
			Default:  textValue(row[3]),
		})
	}
	return details, nil
}

// listNames runs a single-column query and returns its values as strings.
func (e *Executor) listNames(ctx context.Context, url string, qb sq.SelectBuilder, action string) ([]string, error) {
	statement, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	result, err := e.run(ctx, url, 0, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	names := make([]string, 0, result.Count)
	for _, row := range result.Rows {
		names = append(names, textValue(row[0]))
	}
	return names, nil
}

// textValue renders a scanned value as text; NULL becomes "".
func textValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
