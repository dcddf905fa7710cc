package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/bit2swaz/foodstagram/internal/recipe"
)

var (
	prefixStyle = color.New(color.FgHiCyan, color.Bold)
	okStyle     = color.New(color.FgHiGreen, color.Bold)
	headStyle   = color.New(color.FgHiYellow, color.Bold)
	infoStyle   = color.New(color.FgHiWhite)
	subtleStyle = color.New(color.FgHiBlack)
	warnStyle   = color.New(color.FgHiMagenta, color.Bold)
	errorStyle  = color.New(color.FgHiRed, color.Bold)
)

// Exit codes other than the generic 1.
const exitRateLimited = 2

type ExitError interface {
	error
	ExitCode() int
}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit code %d", e.code)
}

func (e *exitError) Unwrap() error {
	return e.err
}

func (e *exitError) ExitCode() int {
	return e.code
}

func newExitError(code int, err error) ExitError {
	if code == 0 {
		code = 1
	}
	return &exitError{code: code, err: err}
}

func prefix() string {
	return prefixStyle.Sprint("[Foodstagram]")
}

func logInfo(out io.Writer, message string) {
	fmt.Fprintf(out, "%s %s\n", prefix(), infoStyle.Sprint(message))
}

func logSuccess(out io.Writer, message string) {
	fmt.Fprintf(out, "%s %s\n", prefix(), okStyle.Sprint(message))
}

func logWarning(errOut io.Writer, message string) {
	fmt.Fprintf(errOut, "%s %s %s\n", prefix(), warnStyle.Sprint("WARN"), infoStyle.Sprint(message))
}

func logFailure(errOut io.Writer, message string) {
	fmt.Fprintf(errOut, "%s %s %s\n", prefix(), errorStyle.Sprint("ERROR"), infoStyle.Sprint(message))
}

// reportError prints err and converts rate-limit rejections into exit code 2.
func reportError(errOut io.Writer, err error) error {
	if err == nil {
		return nil
	}

	var limited *rateLimitedError
	if errors.As(err, &limited) {
		logWarning(errOut, fmt.Sprintf("Rate limit reached. Try again in %s.", humanDuration(limited.RetryIn)))
		return newExitError(exitRateLimited, err)
	}

	var exitErr ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}

	logFailure(errOut, err.Error())
	return newExitError(1, err)
}

func humanDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(time.Second).String()
}

func stars(n int) string {
	if n <= 0 {
		return subtleStyle.Sprint("unrated")
	}
	if n > recipe.MaxRating {
		n = recipe.MaxRating
	}
	return strings.Repeat("*", n) + strings.Repeat(".", recipe.MaxRating-n)
}

// renderRecipe prints a recipe card.
func renderRecipe(out io.Writer, r *recipe.Recipe) {
	fmt.Fprintf(out, "%s\n", headStyle.Sprint(r.DishName))
	meta := []string{}
	if r.Origin != "" {
		meta = append(meta, r.Origin)
	}
	if r.CookingTime != "" {
		meta = append(meta, r.CookingTime)
	}
	if r.Difficulty != "" {
		meta = append(meta, r.Difficulty)
	}
	if len(meta) > 0 {
		fmt.Fprintf(out, "%s\n", subtleStyle.Sprint(strings.Join(meta, " | ")))
	}
	if r.Description != "" {
		fmt.Fprintf(out, "\n%s\n", r.Description)
	}

	if len(r.Ingredients) > 0 {
		fmt.Fprintf(out, "\n%s\n", okStyle.Sprint("Ingredients"))
		for _, ing := range r.Ingredients {
			fmt.Fprintf(out, "  - %s\n", ing)
		}
	}
	if len(r.Instructions) > 0 {
		fmt.Fprintf(out, "\n%s\n", okStyle.Sprint("Instructions"))
		for i, step := range r.Instructions {
			fmt.Fprintf(out, "  %d. %s\n", i+1, step)
		}
	}
	if len(r.SpecialIngredients) > 0 {
		fmt.Fprintf(out, "\n%s\n", okStyle.Sprint("Special ingredients"))
		for _, s := range r.SpecialIngredients {
			fmt.Fprintf(out, "  - %s: %s", s.Name, s.Explanation)
			if s.Substitute != "" {
				fmt.Fprintf(out, " %s", subtleStyle.Sprintf("(substitute: %s)", s.Substitute))
			}
			fmt.Fprintln(out)
		}
	}

	fp := r.FlavorProfile
	fmt.Fprintf(out, "\n%s spicy %d  sweet %d  savory %d  sour %d  bitter %d\n",
		okStyle.Sprint("Flavor"), fp.Spicy, fp.Sweet, fp.Savory, fp.Sour, fp.Bitter)

	if len(r.RelatedDishes) > 0 {
		names := make([]string, 0, len(r.RelatedDishes))
		for _, d := range r.RelatedDishes {
			names = append(names, d.DishName)
		}
		fmt.Fprintf(out, "%s %s\n", okStyle.Sprint("Try next"), strings.Join(names, ", "))
	}
	if r.UserRating > 0 || r.UserNotes != "" {
		fmt.Fprintf(out, "%s %s %s\n", okStyle.Sprint("Your rating"), stars(r.UserRating), r.UserNotes)
	}
	if r.VideoURI != "" {
		fmt.Fprintf(out, "%s %s\n", okStyle.Sprint("Video"), r.VideoURI)
	}
}
