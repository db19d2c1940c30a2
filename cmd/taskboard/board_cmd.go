package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/taskboard/internal/board"
	"github.com/fentz26/taskboard/internal/client"
	"github.com/fentz26/taskboard/internal/fault"
	"github.com/fentz26/taskboard/internal/models"
	"github.com/fentz26/taskboard/internal/transition"
)

// commandTimeout bounds one CLI command's round trips to the server.
const commandTimeout = 30 * time.Second

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Print the merged task board",
	RunE:  runBoard,
}

var moveCmd = &cobra.Command{
	Use:   "move <employee> <task> <todo|pending|complete>",
	Short: "Move one of today's tasks to another bucket",
	Args:  cobra.ExactArgs(3),
	RunE:  runMove,
}

var submitCmd = &cobra.Command{
	Use:   "submit <employee>",
	Short: "Submit today's tasks for an employee",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmit,
}

var todayCmd = &cobra.Command{
	Use:   "today <employee>",
	Short: "Show an employee's tasks for today",
	Args:  cobra.ExactArgs(1),
	RunE:  runToday,
}

var (
	boardTodayOnly bool
	moveGroup      string
	submitTodo     []string
	submitPending  []string
	submitComplete []string
	submitCode     string
	submitProject  string
	submitGroup    string
)

func init() {
	boardCmd.Flags().BoolVar(&boardTodayOnly, "today", false, "Only show today's tasks")

	moveCmd.Flags().StringVar(&moveGroup, "group", "", "Group row to edit when the employee is on both sheets: DEV or Managers")

	submitCmd.Flags().StringArrayVar(&submitTodo, "todo", nil, "Task to do (repeatable)")
	submitCmd.Flags().StringArrayVar(&submitPending, "pending", nil, "Pending task (repeatable)")
	submitCmd.Flags().StringArrayVar(&submitComplete, "complete", nil, "Completed task (repeatable)")
	submitCmd.Flags().StringVar(&submitCode, "code", "", "Employee code")
	submitCmd.Flags().StringVar(&submitProject, "project", "", "Project name")
	submitCmd.Flags().StringVar(&submitGroup, "group", "", "Group: DEV or Managers")
}

// newBoard connects a board session to the configured API server.
func newBoard() (*board.Board, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	days, err := classifier(cfg)
	if err != nil {
		return nil, err
	}
	return board.New(client.New(cfg.APIAddr), days, textLogger()), nil
}

// userError maps a board error to the message shown to the user.
func userError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(fault.UserMessage(err))
}

func runBoard(cmd *cobra.Command, args []string) error {
	b, err := newBoard()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	st, err := b.Refresh(ctx, board.State{})
	if err != nil {
		return userError(err)
	}
	if len(st.Views) == 0 {
		fmt.Println("No employees on the board.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EMPLOYEE\tGROUP\tID\tPROJECT\tDAY\tSTATUS\tTASK")
	for _, v := range st.Views {
		for _, d := range v.History {
			if boardTodayOnly && d.Date != st.Today {
				continue
			}
			for _, bucket := range models.Buckets {
				for _, task := range d.Bucket(bucket) {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						v.EmployeeName, v.Group, v.EmployeeID(), v.ProjectName(), d.Date, bucket, task)
				}
			}
		}
	}
	return w.Flush()
}

func runMove(cmd *cobra.Command, args []string) error {
	to, err := models.ParseBucket(args[2])
	if err != nil {
		return err
	}
	var group models.Group
	if moveGroup != "" {
		if group, err = models.ParseGroup(moveGroup); err != nil {
			return err
		}
	}
	b, err := newBoard()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	st, err := b.Refresh(ctx, board.State{})
	if err != nil {
		return userError(err)
	}
	st, err = b.Select(st, args[0], group, st.Today, args[1])
	if err != nil {
		return userError(err)
	}
	from := st.Selection.Bucket
	if _, err := b.Move(ctx, st, to); err != nil {
		return userError(err)
	}

	fmt.Printf("Moved %q from %s to %s\n", args[1], from, to)
	return nil
}

func runSubmit(cmd *cobra.Command, args []string) error {
	s := transition.Submission{
		Employee:     args[0],
		EmployeeCode: submitCode,
		ProjectName:  submitProject,
		Todo:         submitTodo,
		Pending:      submitPending,
		Complete:     submitComplete,
	}
	if submitGroup != "" {
		g, err := models.ParseGroup(submitGroup)
		if err != nil {
			return err
		}
		s.Group = g
	}

	b, err := newBoard()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if _, err := b.Submit(ctx, board.State{}, s); err != nil {
		return userError(err)
	}

	n := len(s.Todo) + len(s.Pending) + len(s.Complete)
	fmt.Printf("Submitted %d tasks for %s\n", n, args[0])
	return nil
}

func runToday(cmd *cobra.Command, args []string) error {
	b, err := newBoard()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	entry, err := b.LoadToday(ctx, args[0])
	if err != nil {
		return userError(err)
	}
	if !entry.Found {
		fmt.Printf("No tasks recorded for %s on %s\n", entry.Employee, entry.Day.Date)
		return nil
	}

	fmt.Printf("%s (%s) - %s\n", entry.Employee, entry.Group, entry.Day.Date)
	for _, bucket := range models.Buckets {
		tasks := entry.Day.Bucket(bucket)
		if len(tasks) == 0 {
			continue
		}
		fmt.Printf("  %s:\n", strings.ToUpper(string(bucket)))
		for _, t := range tasks {
			fmt.Printf("    - %s\n", t)
		}
	}
	return nil
}
