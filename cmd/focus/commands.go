package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/focuscycle/internal/app"
	"github.com/focuscycle/internal/cycle"
	"github.com/focuscycle/internal/timer"
)

func dispatch(e *env, name string, args []string) error {
	switch name {
	case "status":
		return cmdStatus(e)
	case "cycles":
		return cmdCycles(e)
	case "new-cycle":
		return cmdNewCycle(e, args)
	case "use":
		return withID(args, e.cycles.SetActiveCycle)
	case "delete-cycle":
		return withID(args, e.cycles.DeleteCycle)
	case "add":
		return cmdAdd(e, args)
	case "edit":
		return cmdEdit(e, args)
	case "adjust":
		return cmdAdjust(e, args)
	case "remove":
		return withID(args, func(id string) error { return e.cycles.RemoveSubject(id, "") })
	case "jump":
		return withID(args, e.cycles.JumpToSubject)
	case "next":
		subject, err := e.cycles.Advance()
		if err != nil {
			return err
		}
		fmt.Printf("next up: %s\n", subject.Name)
		return nil
	case "record":
		return cmdRecord(e, args)
	case "start":
		return cmdStart(e, args)
	case "template":
		return cmdTemplate(e, args)
	case "today":
		today := e.stats.Today()
		fmt.Printf("%s: %d sessions, %d focus min, %d break min\n", today.Date, today.CompletedSessions, today.TotalFocusTime, today.TotalBreakTime)
		return nil
	case "export":
		id := ""
		if len(args) > 0 {
			id = args[0]
		}
		raw, err := e.cycles.ExportJSON(id)
		if err != nil {
			return err
		}
		fmt.Println(string(raw))
		return nil
	case "import":
		if len(args) != 1 {
			return errors.New("import requires a file path")
		}
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		imported, err := e.cycles.ImportCycle(raw)
		if err != nil {
			return err
		}
		fmt.Printf("imported %q (%s) with %d subjects\n", imported.Name, imported.ID, len(imported.Subjects))
		return nil
	case "help", "-h", "--help":
		fmt.Println(usage)
		return nil
	}
	return fmt.Errorf("unknown command %q", name)
}

func withID(args []string, fn func(string) error) error {
	if len(args) != 1 {
		return errors.New("expected exactly one id")
	}
	return fn(args[0])
}

func cmdStatus(e *env) error {
	active, ok := e.cycles.ActiveCycle()
	if !ok {
		return cycle.ErrNoActiveCycle
	}
	fmt.Printf("%s (%s)  week of %s\n", active.Name, active.ID, active.WeekStartDate.Format(app.DateLayout))

	current, _ := e.cycles.CurrentSubject()
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tSUBJECT\tWEEK\tTARGET\tPROGRESS\tREMAINING")
	for _, s := range e.cycles.AllStats() {
		marker := ""
		if current != nil && current.ID == s.ID {
			marker = ">"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%dm\t%.1fh\t%.0f%%\t%.0fm\n",
			marker, s.ID, s.Name, s.CurrentWeekMinutes, s.WeeklyHours, s.WeeklyProgress, s.RemainingMinutes)
	}
	return w.Flush()
}

func cmdCycles(e *env) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tNAME\tSUBJECTS\tDAYS")
	for _, c := range e.cycles.ListCycles() {
		marker := ""
		if c.Active {
			marker = "*"
		}
		days := make([]string, 0, len(c.StudyDays))
		for _, d := range c.StudyDays {
			days = append(days, string(d))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", marker, c.ID, c.Name, c.SubjectsCount, strings.Join(days, ","))
	}
	return w.Flush()
}

func cmdNewCycle(e *env, args []string) error {
	if len(args) == 0 {
		return errors.New("new-cycle requires a name")
	}
	var days []cycle.Weekday
	if len(args) > 1 {
		for _, raw := range strings.Split(args[1], ",") {
			day, ok := cycle.ParseWeekday(raw)
			if !ok {
				return fmt.Errorf("unknown weekday %q", raw)
			}
			days = append(days, day)
		}
	}
	created, err := e.cycles.CreateCycle(args[0], days)
	if err != nil {
		return err
	}
	fmt.Printf("created %q (%s)\n", created.Name, created.ID)
	return nil
}

func cmdAdd(e *env, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	hours := fs.Float64("hours", 0, "weekly target in hours")
	color := fs.String("color", "", "display color")
	priority := fs.Int("priority", 0, "priority, 1 is highest")
	if len(args) == 0 {
		return errors.New("add requires a subject name")
	}
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	subject, err := e.cycles.AddSubject(cycle.SubjectSpec{
		Name:        args[0],
		Color:       *color,
		Priority:    *priority,
		WeeklyHours: *hours,
	}, "")
	if err != nil {
		return err
	}
	fmt.Printf("added %q (%s), %.1fh per week\n", subject.Name, subject.ID, subject.WeeklyHours)
	return nil
}

func cmdEdit(e *env, args []string) error {
	if len(args) == 0 {
		return errors.New("edit requires a subject id")
	}
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	name := fs.String("name", "", "new name")
	hours := fs.Float64("hours", -1, "weekly target in hours")
	color := fs.String("color", "", "display color")
	priority := fs.Int("priority", 0, "priority")
	week := fs.Int("week", -1, "current week minutes")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	var patch cycle.SubjectPatch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			patch.Name = name
		case "hours":
			patch.WeeklyHours = hours
		case "color":
			patch.Color = color
		case "priority":
			patch.Priority = priority
		case "week":
			patch.CurrentWeekMinutes = week
		}
	})

	subject, err := e.cycles.EditSubject(args[0], patch, "")
	if err != nil {
		return err
	}
	fmt.Printf("updated %q\n", subject.Name)
	return nil
}

func cmdAdjust(e *env, args []string) error {
	if len(args) != 2 {
		return errors.New("adjust requires a subject id and a minute delta")
	}
	delta, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid delta %q", args[1])
	}
	subject, err := e.cycles.AdjustWeekMinutes(args[0], delta, "")
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d minutes this week\n", subject.Name, subject.CurrentWeekMinutes)
	return nil
}

func cmdRecord(e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("record requires minutes")
	}
	minutes, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid minutes %q", args[0])
	}
	current, ok := e.cycles.CurrentSubject()
	if !ok {
		return cycle.ErrNoSubjects
	}
	if !e.cycles.HasTimeAvailable(current.ID) {
		return fmt.Errorf("%w: %s", app.ErrQuotaReached, current.Name)
	}
	if err := e.cycles.RecordSession(current.ID, minutes); err != nil {
		return err
	}
	e.stats.AddFocus(minutes)
	fmt.Printf("recorded %d minutes for %s\n", minutes, current.Name)
	return nil
}

func cmdTemplate(e *env, args []string) error {
	if len(args) == 0 {
		for _, name := range app.TemplateNames() {
			t := app.Templates[name]
			marker := " "
			if name == e.settings.CurrentTemplate {
				marker = "*"
			}
			fmt.Printf("%s %-8s %d/%d/%d every %d\n", marker, name, t.FocusTime, t.ShortBreakTime, t.LongBreakTime, t.SessionsBeforeLongBreak)
		}
		return nil
	}
	next, err := e.settings.ApplyTemplate(args[0])
	if err != nil {
		return err
	}
	if err := app.SaveSettings(e.store, next); err != nil {
		return err
	}
	fmt.Printf("template %s applied\n", args[0])
	return nil
}

// cmdStart 运行计时器直到阶段完成且不再自动开始，Ctrl+C 会停止计时且不计入统计
func cmdStart(e *env, args []string) error {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	modeName := fs.String("mode", string(timer.ModeFocus), "focus, shortBreak or longBreak")
	minutes := fs.Int("minutes", 0, "override the phase length")
	if err := fs.Parse(args); err != nil {
		return err
	}
	mode, ok := timer.ParseMode(*modeName)
	if !ok {
		return fmt.Errorf("unknown mode %q", *modeName)
	}

	settings := e.settings
	if *minutes > 0 {
		switch mode {
		case timer.ModeFocus:
			settings.FocusTime = *minutes
		case timer.ModeShortBreak:
			settings.ShortBreakTime = *minutes
		case timer.ModeLongBreak:
			settings.LongBreakTime = *minutes
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := app.NewScheduler(e.cycles, time.Local, e.log)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	done := make(chan struct{})
	clock := timer.New()
	controller := app.NewController(e.cycles, clock, e.stats, settings,
		app.WithControllerLogger(e.log),
		app.WithNotifier(func(c app.Completion) {
			report(c)
			if !c.AutoStarted {
				close(done)
			}
		}),
	)

	runErr := make(chan error, 1)
	go func() { runErr <- controller.Run(ctx) }()

	if mode == timer.ModeFocus {
		if current, ok := e.cycles.CurrentSubject(); ok {
			fmt.Printf("focusing on %s\n", current.Name)
		}
	}
	if err := controller.Start(mode); err != nil {
		clock.Close()
		return err
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			state := clock.State()
			fmt.Printf("\r%-10s %s ", state.Mode, timer.FormatClock(state.Remaining))
		case <-done:
			clock.Close()
			<-runErr
			return nil
		case <-ctx.Done():
			clock.Stop()
			<-runErr
			// Run 已随 ctx 退出，剩余事件无人消费
			clock.Shutdown()
			fmt.Println("\nstopped")
			return nil
		}
	}
}

func report(c app.Completion) {
	fmt.Println()
	if c.Subject != nil {
		fmt.Printf("%s done: +%d min on %s\n", c.Mode, c.Minutes, c.Subject.Name)
	} else {
		fmt.Printf("%s done\n", c.Mode)
	}
	if c.Upcoming != nil {
		fmt.Printf("up next: %s\n", c.Upcoming.Name)
	}
	fmt.Printf("today: %d sessions, %d min focused; next phase %s\n", c.Stats.CompletedSessions, c.Stats.TotalFocusTime, c.Next)
}
