package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fairyhunter13/talentfinder/internal/adapter/export"
	"github.com/fairyhunter13/talentfinder/internal/app"
	"github.com/fairyhunter13/talentfinder/internal/domain"
	"github.com/fairyhunter13/talentfinder/internal/projection"
	"github.com/fairyhunter13/talentfinder/internal/usecase"
	"github.com/fairyhunter13/talentfinder/pkg/textx"
)

type env struct {
	c      *app.Components
	stdout io.Writer
	stderr io.Writer
}

type command func(ctx context.Context, e *env, args []string) error

var commands = map[string]command{
	"login":   cmdLogin,
	"signup":  cmdSignup,
	"logout":  cmdLogout,
	"me":      cmdMe,
	"search":  cmdSearch,
	"profile": cmdProfile,
	"upload":  cmdUpload,
	"status":  cmdStatus,
	"clear":   cmdClear,
}

// flags returns a flag set with the shared -o flag.
func (e *env) flags(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	format := fs.String("o", "json", "output format: json or yaml")
	return fs, format
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func cmdLogin(ctx context.Context, e *env, args []string) error {
	fs, _ := e.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("TALENTCTL_PASSWORD"), "account password (or TALENTCTL_PASSWORD)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := e.c.Auth.Login(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Fprintln(e.stderr, "logged in")
	return nil
}

func cmdSignup(ctx context.Context, e *env, args []string) error {
	fs, _ := e.flags("signup")
	var req domain.SignupRequest
	fs.StringVar(&req.Name, "name", "", "full name")
	fs.StringVar(&req.Email, "email", "", "account email")
	fs.StringVar(&req.Number, "number", "", "phone number")
	fs.StringVar(&req.Password, "password", os.Getenv("TALENTCTL_PASSWORD"), "account password (or TALENTCTL_PASSWORD)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := e.c.Auth.Signup(ctx, req); err != nil {
		return err
	}
	fmt.Fprintln(e.stderr, "signed up and logged in")
	return nil
}

func cmdLogout(ctx context.Context, e *env, args []string) error {
	fs, _ := e.flags("logout")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := e.c.Auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.stderr, "logged out")
	return nil
}

func cmdMe(ctx context.Context, e *env, args []string) error {
	fs, format := e.flags("me")
	if err := parse(fs, args); err != nil {
		return err
	}
	u, err := e.c.Auth.Me(ctx)
	if err != nil {
		return err
	}
	return printValue(e.stdout, *format, u)
}

func cmdSearch(ctx context.Context, e *env, args []string) error {
	fs, format := e.flags("search")
	jd := fs.String("jd", "", "job description (remaining arguments are used when empty)")
	skills := fs.String("skills", "", "comma-separated required skills for the dashboard")
	topK := fs.Int("top-k", 0, "number of candidates to fetch")
	minExp := fs.Float64("min-exp", 0, "minimum years of experience")
	must := fs.String("require", "", "comma-separated skills every candidate must have")
	sortBy := fs.String("sort", string(domain.SortRelevance), "relevance or experience")
	page := fs.Int("page", 1, "results page")
	xlsx := fs.String("xlsx", "", "also write the filtered table to this .xlsx file")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *jd == "" {
		*jd = strings.Join(fs.Args(), " ")
	}

	filter := domain.FilterState{
		MinExperience:  *minExp,
		RequiredSkills: textx.SplitSkills(*must),
		SortBy:         domain.SortBy(*sortBy),
	}

	s := e.c.Search
	s.Submit(ctx, domain.SearchQuery{JobDescription: *jd, RequiredSkills: textx.SplitSkills(*skills), TopK: *topK})
	stop := context.AfterFunc(ctx, s.Close)
	s.Wait()
	stop()
	if ctx.Err() != nil {
		return fmt.Errorf("search interrupted: %w", ctx.Err())
	}

	st := s.State()
	if st.Phase == domain.SearchFailed {
		return errors.New(st.Error)
	}
	// A submission starts from the default filter.
	if err := s.SetFilter(filter); err != nil {
		return err
	}
	s.SetPage(*page)
	if *xlsx != "" {
		path, err := export.SaveResultsXLSX(*xlsx, projection.Table(s.FilteredProfiles()), export.ReportMeta{
			JobDescription: st.Query.JobDescription,
			RequiredSkills: st.Query.RequiredSkills,
			GeneratedAt:    time.Now(),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stderr, "wrote %s\n", path)
	}
	return printValue(e.stdout, *format, s.View())
}

func cmdProfile(ctx context.Context, e *env, args []string) error {
	fs, format := e.flags("profile")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: profile takes one document id", errUsage)
	}
	p, err := e.c.Client.GetProfile(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return printValue(e.stdout, *format, p)
}

func cmdUpload(ctx context.Context, e *env, args []string) error {
	fs, format := e.flags("upload")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: upload takes one .zip file", errUsage)
	}
	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("op=talentctl.upload: %w", err)
	}

	u := e.c.Uploads
	u.OnChange(func(st domain.UploadJobState) {
		if st.TotalFiles > 0 {
			fmt.Fprintf(e.stderr, "[%s] %d/%d %s\n", st.Status, st.ProcessedFiles, st.TotalFiles, st.Message)
			return
		}
		fmt.Fprintf(e.stderr, "[%s] %s\n", st.Status, st.Message)
	})

	u.Start(ctx, usecase.UploadFile{Name: filepath.Base(path), Data: data})
	stop := context.AfterFunc(ctx, u.Cancel)
	u.Wait()
	stop()

	st := u.State()
	if err := printValue(e.stdout, *format, st); err != nil {
		return err
	}
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("upload interrupted; job %s may still be processing", st.JobID)
	case st.Status == domain.UploadFailed || st.Status == domain.UploadRejected:
		return errors.New(st.Message)
	}
	return nil
}

func cmdStatus(ctx context.Context, e *env, args []string) error {
	fs, format := e.flags("status")
	if err := parse(fs, args); err != nil {
		return err
	}
	st, err := e.c.Admin.Status(ctx)
	if err != nil {
		fmt.Fprintln(e.stderr, "warning:", err)
	}
	return printValue(e.stdout, *format, st)
}

func cmdClear(ctx context.Context, e *env, args []string) error {
	fs, format := e.flags("clear")
	yes := fs.Bool("yes", false, "confirm deleting every stored resume")
	if err := parse(fs, args); err != nil {
		return err
	}
	if !*yes {
		return fmt.Errorf("%w: clear deletes every stored resume; pass -yes to confirm", errUsage)
	}
	st, err := e.c.Admin.ClearResumes(ctx)
	if err != nil && st.DBStatus == "" {
		return err
	}
	if err != nil {
		fmt.Fprintln(e.stderr, "warning:", err)
	}
	return printValue(e.stdout, *format, st)
}
