package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ordset/internal/crud"
	"github.com/roach88/ordset/internal/ordering"
	"github.com/roach88/ordset/internal/queryir"
	"github.com/roach88/ordset/internal/store"
)

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		list     string
		category string
		labels   []string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add an item at the end of its list",
		Long: `Add an item. It is placed after the last active item of its
(list, category).

Example:
  ordset add --list groceries "Buy milk"
  ordset add --list groceries --category done --label weekly "Buy bread"`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app) error {
				item := &store.Item{
					ListID:   store.ListRef(list),
					Category: category,
					Title:    args[0],
					Labels:   labels,
				}
				if err := a.items.Create(cmd.Context(), item); err != nil {
					return a.out.Fail("failed to add item", err)
				}
				return a.out.Success(viewOf(item))
			})
		},
	}

	cmd.Flags().StringVar(&list, "list", "", "list ID (empty: no list)")
	cmd.Flags().StringVar(&category, "category", "todo", "category within the list")
	cmd.Flags().StringSliceVar(&labels, "label", nil, "label (repeatable)")
	return cmd
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		list     string
		category string
		all      bool
	)

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List items in order",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app) error {
				var filter []queryir.Predicate
				if cmd.Flags().Changed("list") {
					filter = append(filter, store.InList(list))
				}
				if category != "" {
					filter = append(filter, store.InCategory(category))
				}
				if !all {
					filter = append(filter, store.Active())
				}

				items, err := a.store.ListItems(cmd.Context(), queryir.All(filter...))
				if err != nil {
					return a.out.Fail("failed to list items", err)
				}
				view := ListView{Items: make([]ItemView, 0, len(items))}
				for _, item := range items {
					view.Items = append(view.Items, viewOf(item))
				}
				return a.out.Success(view)
			})
		},
	}

	cmd.Flags().StringVar(&list, "list", "", "only this list (empty: items in no list)")
	cmd.Flags().StringVar(&category, "category", "", "only this category")
	cmd.Flags().BoolVar(&all, "all", false, "include archived items")
	return cmd
}

// NewMoveCommand creates the move command.
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "move <id> <position>",
		Short: "Move an item before the item at position",
		Long: `Move an item within its (list, category) so that it lands before the
item currently at position. Positions past the end move it to the end; a
negative position takes it out of the ordering.

Moving an item down therefore leaves it at position-1:
  ordset move item-1 3   # a b c d -> b c a d`,
		Args:          cobra.ExactArgs(2),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.Atoi(args[1])
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid position %q", args[1]))
			}
			return withApp(rootOpts, cmd, func(a *app) error {
				item, err := a.getItem(cmd, args[0])
				if err != nil {
					return err
				}
				var opts []ordering.MoveOption
				if cmd.Flags().Changed("compact") {
					if compact {
						opts = append(opts, ordering.Compact())
					} else {
						opts = append(opts, ordering.Safe())
					}
				}
				if err := a.items.Move(cmd.Context(), item, target, opts...); err != nil {
					return a.out.Fail("failed to move item", err)
				}
				return a.out.Success(viewOf(item))
			})
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "use the two-statement move (needs a non-strict store)")
	return cmd
}

// NewArchiveCommand creates the archive command.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "archive <id>",
		Short:         "Archive an item, closing the gap it leaves",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app) error {
				item, err := a.getItem(cmd, args[0])
				if err != nil {
					return err
				}
				if err := a.items.Archive(cmd.Context(), item, crud.ArchivedAt(time.Now())); err != nil {
					return a.out.Fail("failed to archive item", err)
				}
				return a.out.Success(viewOf(item))
			})
		},
	}
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "restore <id>",
		Short:         "Restore an archived item to the end of its list",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app) error {
				item, err := a.getItem(cmd, args[0])
				if err != nil {
					return err
				}
				if err := a.items.Restore(cmd.Context(), item, crud.Unarchive); err != nil {
					return a.out.Fail("failed to restore item", err)
				}
				return a.out.Success(viewOf(item))
			})
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete an item, closing the gap it leaves",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app) error {
				item, err := a.getItem(cmd, args[0])
				if err != nil {
					return err
				}
				if err := a.items.Delete(cmd.Context(), item); err != nil {
					return a.out.Fail("failed to delete item", err)
				}
				return a.out.Success(fmt.Sprintf("deleted %s", item.ID))
			})
		},
	}
}

// NewReassignCommand creates the reassign command.
func NewReassignCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		list     string
		category string
		title    string
	)

	cmd := &cobra.Command{
		Use:   "reassign <id>",
		Short: "Change an item's list, category or title",
		Long: `Change an item's list, category or title. An item whose list or
category changes is appended to the end of its new (list, category).

Example:
  ordset reassign item-7 --list work --category doing`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app) error {
				item, err := a.getItem(cmd, args[0])
				if err != nil {
					return err
				}
				change, err := a.items.Update(cmd.Context(), item, func(i *store.Item) error {
					if cmd.Flags().Changed("list") {
						i.ListID = store.ListRef(list)
					}
					if cmd.Flags().Changed("category") {
						i.Category = category
					}
					if cmd.Flags().Changed("title") {
						i.Title = title
					}
					return nil
				})
				if err != nil {
					return a.out.Fail("failed to reassign item", err)
				}
				return a.out.Success(changeView(item, change))
			})
		},
	}

	cmd.Flags().StringVar(&list, "list", "", "new list ID (empty: no list)")
	cmd.Flags().StringVar(&category, "category", "", "new category")
	cmd.Flags().StringVar(&title, "title", "", "new title")
	return cmd
}
