package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/supertutor/internal/course"
	"github.com/abhisek/supertutor/internal/progress"
	"github.com/abhisek/supertutor/internal/session"
)

var courseCmd = &cobra.Command{
	Use:   "course",
	Short: "Create, browse and study courses",
}

var courseNewCmd = &cobra.Command{
	Use:   "new <subject...>",
	Short: "Create a course for a subject",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modeVal, _ := cmd.Flags().GetString("mode")
		mode, ok := course.ParseMode(modeVal)
		if !ok {
			return fmt.Errorf("invalid mode %q: must be generative, staged or curated", modeVal)
		}

		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.close()
		c, err := rt.controller(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Designing...")
		crs, err := c.GenerateCourse(cmd.Context(), strings.Join(args, " "), mode)
		if err != nil {
			return err
		}
		printCourse(out, crs, false)
		printSync(out, c)
		return nil
	},
}

var courseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your courses with progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.close()
		c, err := rt.controller(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		out := cmd.OutOrStdout()
		prof := c.Profile()
		if len(prof.Courses) == 0 {
			fmt.Fprintln(out, "No courses yet. Try: supertutor course new <subject>")
			return nil
		}

		fmt.Fprintf(out, "%-1s  %-36s  %-32s  %-10s  %5s  %s\n", "", "ID", "Title", "Mode", "Done", "Level")
		fmt.Fprintln(out, strings.Repeat("─", 104))
		courses := c.Courses()
		for i, row := range prof.Courses {
			marker := ""
			if row.Active {
				marker = "*"
			}
			fmt.Fprintf(out, "%-1s  %-36s  %-32s  %-10s  %4d%%  %s\n",
				marker, row.CourseID, truncate(row.Title, 32), courses[i].Mode, row.Completion, row.Level)
		}
		fmt.Fprintln(out, strings.Repeat("─", 104))
		fmt.Fprintf(out, "Overall: %d/%d activities mastered (%d%%) — %s\n",
			prof.MasteredActivities, prof.TotalActivities, prof.Completion, prof.Level)
		return nil
	},
}

var courseShowCmd = &cobra.Command{
	Use:   "show [course-id]",
	Short: "Show a course (default: the active course)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.close()
		c, err := rt.controller(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		crs, err := pickCourse(c, args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printCourse(out, crs, true)
		p := progress.Aggregate(crs)
		fmt.Fprintf(out, "\nProgress: %d%% (%s) — %d correct / %d incorrect attempts\n",
			p.Completion, p.Level, p.CorrectAttempts, p.IncorrectAttempts)
		return nil
	},
}

var courseUseCmd = &cobra.Command{
	Use:   "use <course-id>",
	Short: "Make a course the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.close()
		c, err := rt.controller(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.SwitchCourse(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Active course: %s\n", c.ActiveCourse().Title)
		printSync(cmd.OutOrStdout(), c)
		return nil
	},
}

var courseStudyCmd = &cobra.Command{
	Use:   "study [course-id]",
	Short: "Work through a course interactively",
	Long: `Walk through every activity that is not yet mastered, one at a time.

Answer multiple choice questions by number or text. Submit an empty line to skip
an activity and "q" to stop. Staged courses offer the next mission when the
current ones are done.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.close()
		c, err := rt.controller(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		crs, err := pickCourse(c, args)
		if err != nil {
			return err
		}
		if crs.ID != c.ActiveCourseID() {
			if err := c.SwitchCourse(cmd.Context(), crs.ID); err != nil {
				return err
			}
		}
		return study(cmd, c, crs.ID)
	},
}

func init() {
	courseNewCmd.Flags().StringP("mode", "m", "generative", "Course mode: generative, staged or curated")

	courseCmd.AddCommand(courseNewCmd)
	courseCmd.AddCommand(courseListCmd)
	courseCmd.AddCommand(courseShowCmd)
	courseCmd.AddCommand(courseUseCmd)
	courseCmd.AddCommand(courseStudyCmd)
}

func pickCourse(c *session.Controller, args []string) (*course.Course, error) {
	if len(args) == 1 {
		return c.Course(args[0])
	}
	crs := c.ActiveCourse()
	if crs == nil {
		return nil, errors.New("no active course; create one with: supertutor course new <subject>")
	}
	return crs, nil
}

var errQuit = errors.New("quit")

// study runs the interactive loop over unmastered activities.
func study(cmd *cobra.Command, c *session.Controller, courseID string) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())

	for {
		crs, err := c.Course(courseID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "── %s ──\n\n", crs.Title)

		for _, m := range crs.Modules {
			for _, a := range m.Activities {
				if a.Status == course.StatusCorrect {
					continue
				}
				err := studyActivity(cmd, c, scanner, crs.ID, m, a)
				if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
					return finishStudy(out, c, courseID)
				}
				if err != nil {
					return err
				}
			}
		}

		if crs.Mode != course.ModeStaged {
			return finishStudy(out, c, courseID)
		}
		fmt.Fprint(out, "Generate your next mission? [y/N] ")
		if !scanner.Scan() || !strings.EqualFold(strings.TrimSpace(scanner.Text()), "y") {
			return finishStudy(out, c, courseID)
		}
		fmt.Fprintln(out, "Designing...")
		mod, err := c.AdvanceStage(cmd.Context(), courseID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "New mission: %s\n\n", mod.Title)
	}
}

func studyActivity(cmd *cobra.Command, c *session.Controller, scanner *bufio.Scanner, courseID string, m course.Module, a course.Activity) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "[%s] %s\n", m.Title, activityLabel(a.Type))
	fmt.Fprintln(out, a.Prompt)
	for j, choice := range a.Choices {
		fmt.Fprintf(out, "  %d) %s\n", j+1, choice)
	}
	if a.LastFeedback != "" {
		fmt.Fprintf(out, "(last time: %s)\n", a.LastFeedback)
	}

	fmt.Fprint(out, "\nYour answer: ")
	if !scanner.Scan() {
		fmt.Fprintln(out, "\n(input closed)")
		return io.EOF
	}
	answer := strings.TrimSpace(scanner.Text())
	switch answer {
	case "":
		fmt.Fprintln(out, "(skipped)")
		fmt.Fprintln(out)
		return nil
	case "q", "quit":
		return errQuit
	}
	if a.Type == course.TypeMultipleChoice {
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(a.Choices) {
			answer = a.Choices[n-1]
		}
	}

	sub, found, err := c.SubmitAnswer(cmd.Context(), courseID, m.ID, a.ID, answer)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if sub.Result.Correct {
		fmt.Fprintf(out, "\033[32m✓\033[0m %s\n", sub.Result.Message)
		if a.Type == course.TypeProject && a.Celebration != "" {
			fmt.Fprintln(out, a.Celebration)
		}
	} else {
		fmt.Fprintf(out, "\033[31m✗\033[0m %s\n", sub.Result.Message)
		if a.Type == course.TypeFreeResponse && a.SampleAnswer != "" {
			fmt.Fprintf(out, "Sample answer: %s\n", a.SampleAnswer)
		}
	}
	fmt.Fprintf(out, "Progress: %d%% (%s)\n\n", sub.Progress.Completion, sub.Progress.Level)
	return nil
}

func finishStudy(out io.Writer, c *session.Controller, courseID string) error {
	p, err := c.Progress(courseID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "── %d/%d mastered (%d%%) — %s ──\n",
		p.MasteredActivities, p.TotalActivities, p.Completion, p.Level)
	printSync(out, c)
	return nil
}

func activityLabel(t course.ActivityType) string {
	switch t {
	case course.TypeMultipleChoice:
		return "Multiple choice"
	case course.TypeFreeResponse:
		return "Reflect"
	case course.TypeProject:
		return "Project"
	default:
		return string(t)
	}
}

func printCourse(out io.Writer, crs *course.Course, details bool) {
	fmt.Fprintf(out, "%s  (%s, %s)\n", crs.Title, crs.Subject, crs.Mode)
	fmt.Fprintf(out, "id: %s\n", crs.ID)
	if crs.Description != "" {
		fmt.Fprintln(out, crs.Description)
	}
	if bp := crs.Blueprint; bp != nil && details {
		fmt.Fprintf(out, "Voice: %s\n", bp.Voice)
		fmt.Fprintf(out, "Story arc: %s\n", strings.Join(bp.StoryArc, " → "))
	}
	fmt.Fprintln(out)
	for _, m := range crs.Modules {
		fmt.Fprintf(out, "  %s\n", m.Title)
		if details && m.Focus != "" {
			fmt.Fprintf(out, "    %s\n", m.Focus)
		}
		for _, a := range m.Activities {
			mark := "○"
			switch a.Status {
			case course.StatusCorrect:
				mark = "✓"
			case course.StatusIncorrect:
				mark = "✗"
			}
			line := a.Prompt
			if !details {
				line = truncate(line, 72)
			}
			fmt.Fprintf(out, "    %s %-15s %s\n", mark, activityLabel(a.Type), line)
		}
	}
	if crs.Mode == course.ModeStaged && crs.NextStage > 0 {
		fmt.Fprintf(out, "\nNext stage: %d\n", crs.NextStage)
	}
}

func printSync(out io.Writer, c *session.Controller) {
	if st := c.SyncStatus(); st.Message != "" {
		fmt.Fprintln(out, st.Message)
	}
}
