package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ops-console-backend/internal/apiclient"
	"ops-console-backend/internal/optimistic"
	"ops-console-backend/internal/resource"
	"ops-console-backend/internal/view"
)

// stderrNotifier prints store notices as they would appear as toasts.
type stderrNotifier struct{ w io.Writer }

func (n stderrNotifier) Success(msg string) { fmt.Fprintln(n.w, msg) }

func (n stderrNotifier) Failure(msg string, err error) { fmt.Fprintf(n.w, "%s: %v\n", msg, err) }

func (n stderrNotifier) Syncing() { fmt.Fprintln(n.w, "Syncing...") }

func newKindCmd[T any](a *app, def *resource.Definition[T]) *cobra.Command {
	var q view.Query
	cmd := &cobra.Command{
		Use:   strings.ReplaceAll(def.Kind, "_", "-"),
		Short: fmt.Sprintf("Manage %s records", strings.ToLower(def.Label)),
	}
	cmd.PersistentFlags().StringVar(&q.Search, "q", "", "search text")
	cmd.PersistentFlags().StringVar(&q.Status, "status", view.FilterAll, "status filter: all, active or inactive")
	cmd.PersistentFlags().StringVar(&q.SortBy, "sort", def.View.DefaultSort, "sort column")
	cmd.PersistentFlags().BoolVar(&q.Desc, "desc", false, "sort descending")

	// open loads the kind into a fresh optimistic store.
	open := func(ctx context.Context) (*optimistic.Store[T], error) {
		backend := apiclient.For(a.client(), def)
		s := optimistic.New(def, backend, stderrNotifier{a.stderr}, a.logger, optimistic.Options{})
		if err := s.Load(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}
	// settle waits for the reconciliation refresh and prints the result.
	settle := func(s *optimistic.Store[T]) {
		s.Wait()
		printTable(a.stdout, def.View, def.View.Derive(s.Rows(), q, a.locale))
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List records",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context())
			if err != nil {
				return err
			}
			printTable(a.stdout, def.View, def.View.Derive(s.Rows(), q, a.locale))
			return nil
		},
	}

	var sets []string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a record from --set field=value pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := def.NewInput()
			if err := decodeSets(func() any { return def.NewInput() }, sets, in); err != nil {
				return err
			}
			s, err := open(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.Create(cmd.Context(), in); err != nil {
				return err
			}
			settle(s)
			return nil
		},
	}
	create.Flags().StringArrayVar(&sets, "set", nil, "field=value (repeatable; value null clears optional fields)")

	update := &cobra.Command{
		Use:   "update ID",
		Short: "Update fields of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p := def.NewPatch()
			if err := decodeSets(func() any { return def.NewPatch() }, sets, p); err != nil {
				return err
			}
			s, err := open(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.Update(cmd.Context(), id, p); err != nil {
				return err
			}
			settle(s)
			return nil
		},
	}
	update.Flags().StringArrayVar(&sets, "set", nil, "field=value (repeatable; value null clears optional fields)")

	cmd.AddCommand(list, create, update)

	if def.Toggleable() {
		cmd.AddCommand(&cobra.Command{
			Use:   "toggle ID",
			Short: "Flip a record between active and inactive",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				s, err := open(cmd.Context())
				if err != nil {
					return err
				}
				if err := s.Toggle(cmd.Context(), id); err != nil {
					return err
				}
				settle(s)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := open(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.Delete(cmd.Context(), id); err != nil {
				return err
			}
			settle(s)
			return nil
		},
	})

	return cmd
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// decodeSets fills target from field=value pairs. A value is taken as a JSON
// literal when the payload type accepts it that way, otherwise as a string,
// so type_id=3 is a number while pin=0042 stays text.
func decodeSets(newValue func() any, sets []string, target any) error {
	fields := make(map[string]json.RawMessage, len(sets))
	for _, kv := range sets {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("invalid --set %q, want field=value", kv)
		}
		quoted, _ := json.Marshal(value)
		fields[key] = quoted

		literal := json.RawMessage(value)
		if !json.Valid(literal) {
			continue
		}
		one, _ := json.Marshal(map[string]json.RawMessage{key: literal})
		if json.Unmarshal(one, newValue()) == nil {
			fields[key] = literal
		}
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("decode fields: %w", err)
	}
	return nil
}

func printTable[T any](w io.Writer, table *view.Table[T], rows []T) {
	// Status is only added when no column shows it already.
	_, hasStatus := table.Column("status")
	extraStatus := table.Status != nil && !hasStatus

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	headers := make([]string, 0, len(table.Columns)+1)
	for _, c := range table.Columns {
		headers = append(headers, strings.ToUpper(c.Header))
	}
	if extraStatus {
		headers = append(headers, "STATUS")
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, row := range rows {
		cells := make([]string, 0, len(headers))
		for _, c := range table.Columns {
			cells = append(cells, view.Format(c.Value(row)))
		}
		if extraStatus {
			cells = append(cells, string(table.Status(row)))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
	fmt.Fprintf(w, "%d record(s)\n", len(rows))
}
