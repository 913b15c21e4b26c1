package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/roadmap-cli/roadmap/internal/tracker"
	"github.com/roadmap-cli/roadmap/internal/types"
)

// formChooser asks, one issue at a time, which side should seed the baseline.
type formChooser struct{}

var _ tracker.BaselineChooser = formChooser{}

func (formChooser) ChooseBaseline(ctx context.Context, choices []tracker.BaselineChoice) (map[string]types.BaselineStrategy, error) {
	picked := make(map[string]types.BaselineStrategy, len(choices))
	for i, c := range choices {
		choice := string(types.BaselineLocal)
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewNote().
					Title(fmt.Sprintf("Issue %s (%d of %d) differs and has no baseline", c.IssueID, i+1, len(choices))).
					Description(describeChoice(c)),
				huh.NewSelect[string]().
					Title("Which version was last agreed?").
					Options(
						huh.NewOption("Local file", string(types.BaselineLocal)),
						huh.NewOption("Remote issue", string(types.BaselineRemote)),
					).
					Value(&choice),
			),
		).WithTheme(huh.ThemeDracula())

		if err := form.RunWithContext(ctx); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil, fmt.Errorf("baseline selection aborted")
			}
			return nil, err
		}
		picked[c.IssueID] = types.BaselineStrategy(choice)
	}
	return picked, nil
}

// describeChoice lists the tracked fields on which the two sides disagree.
func describeChoice(c tracker.BaselineChoice) string {
	var b strings.Builder
	for _, f := range types.TrackedFields {
		l, r := c.Local.FieldValue(f), c.Remote.FieldValue(f)
		if l.Equal(r) {
			continue
		}
		fmt.Fprintf(&b, "%s\n  local:  %s\n  remote: %s\n", f, truncate(l.String(), 60), truncate(r.String(), 60))
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
