package commands

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/itemdesk/itemdesk/pkg/records"
)

// newRecord is the user input of add; both fields must be non-empty.
type newRecord struct {
	Name        string `validate:"required"`
	Description string `validate:"required"`
}

var inputValidator = validator.New()

func (r newRecord) validate() error {
	err := inputValidator.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return records.NewValidationError(err.Error()).WithOp("add")
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, strings.ToLower(fe.Field()))
	}
	return records.NewValidationError(fmt.Sprintf("%s must not be empty", strings.Join(missing, " and "))).WithOp("add")
}

func newAddCommand() *cobra.Command {
	var (
		name        string
		description string
	)

	cmd := &cobra.Command{
		Use:   "add [name] [description]",
		Short: "Add a record",
		Long: `Add a record with a name and a description.

Both values may be given as arguments or with --name and --description.
Neither may be empty. The store assigns a fresh id, which is printed.`,
		Example: `  # Add a record
  itemdesk add Alice Engineer

  # Add using flags
  itemdesk add --name "Bob, Jr." --description "Designer"`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				if cmd.Flags().Changed("name") {
					return records.NewValidationError("name given both as argument and flag")
				}
				name = args[0]
			}
			if len(args) > 1 {
				if cmd.Flags().Changed("description") {
					return records.NewValidationError("description given both as argument and flag")
				}
				description = args[1]
			}
			if err := (newRecord{Name: name, Description: description}).validate(); err != nil {
				return err
			}

			return withApp(cmd, func(a *app) error {
				rec, err := a.svc.Create(a.ctx, name, description)
				if err != nil {
					return err
				}

				log.Info().Int64("id", rec.ID).Msg("Record created")
				if jsonOutput {
					return printJSON(cmd, rec)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created item %d: %s (%s)\n", rec.ID, rec.Name, rec.Description)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "record name")
	cmd.Flags().StringVar(&description, "description", "", "record description")

	return cmd
}

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all records",
		Long:  `List every record in id order.`,
		Example: `  # Show a table
  itemdesk list

  # Machine readable output
  itemdesk list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				recs, err := a.svc.ListAll(a.ctx)
				if err != nil {
					return err
				}

				if jsonOutput {
					return printJSON(cmd, recs)
				}
				return printTable(cmd, recs)
			})
		},
	}

	return cmd
}

func printTable(cmd *cobra.Command, recs []records.Record) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
	for _, rec := range recs {
		fmt.Fprintf(w, "%d\t%s\t%s\n", rec.ID, rec.Name, rec.Description)
	}
	return w.Flush()
}

func newShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return withApp(cmd, func(a *app) error {
				rec, found, err := a.svc.Get(a.ctx, id)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("item %d not found", id)
				}

				if jsonOutput {
					return printJSON(cmd, rec)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ID:          %d\nName:        %s\nDescription: %s\n",
					rec.ID, rec.Name, rec.Description)
				return nil
			})
		},
	}

	return cmd
}

type changeResult struct {
	ID      int64 `json:"id"`
	Changed int64 `json:"changed"`
}

func printChanged(cmd *cobra.Command, id, changed int64) error {
	if jsonOutput {
		return printJSON(cmd, changeResult{ID: id, Changed: changed})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d\n", changed)
	return nil
}

func newUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id> <name> <description>",
		Short: "Replace the name and description of a record",
		Long: `Replace the name and description of the record with the given id.

Prints the number of records changed: 1 on success, 0 when no record has
that id.`,
		Example: `  itemdesk update 1 Alice "Senior Engineer"`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return withApp(cmd, func(a *app) error {
				changed, err := a.svc.Update(a.ctx, id, args[1], args[2])
				if err != nil {
					return err
				}

				log.Info().Int64("id", id).Int64("changed", changed).Msg("Record updated")
				return printChanged(cmd, id, changed)
			})
		},
	}

	return cmd
}

func newDeleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Long: `Delete the record with the given id.

On a terminal the command asks for confirmation unless --yes is given.
Prints the number of records removed: 1, or 0 when no record has that id.`,
		Example: `  # Delete without asking
  itemdesk delete 3 --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			if !yes && isInteractive(cmd) {
				ok, err := confirm(cmd, fmt.Sprintf("Delete item %d?", id))
				if records.IsCancelled(err) || (err == nil && !ok) {
					log.Info().Int64("id", id).Msg("Delete cancelled")
					return nil
				}
				if err != nil {
					return err
				}
			}

			return withApp(cmd, func(a *app) error {
				changed, err := a.svc.Delete(a.ctx, id)
				if err != nil {
					return err
				}

				log.Info().Int64("id", id).Int64("changed", changed).Msg("Record deleted")
				return printChanged(cmd, id, changed)
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}
