package http

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"scoreboard/internal/core"
	"scoreboard/internal/services"
)

// sanitizeInput drops control characters other than tab and newlines. The
// rest, surrounding spaces included, is kept as typed.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// fixed2 renders an amount without the currency sign, for inputs.
func fixed2(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type kidColumn struct {
	Index int
	Name  string
}

type dayHeader struct {
	Index int
	Short string
}

type flagBox struct {
	Sub     int
	Checked bool
}

type cell struct {
	Kid   int
	Day   int
	Flags []flagBox
}

type taskRow struct {
	ID    int64
	Name  string
	Value string
	Cells []cell
}

type summaryLine struct {
	Index      int
	Name       string
	Completed  int
	Weekly     string
	Monthly    string
	Cumulative string
}

// boardPage is the template model for one revision of the board.
type boardPage struct {
	Revision    uint64
	Kids        []kidColumn
	Days        []dayHeader
	Rows        []taskRow
	DailyTotals []string // kid-major, seven per kid
	Summary     []summaryLine
	ResetPrompt string
}

func newBoardPage(v services.View) boardPage {
	st := v.State
	page := boardPage{
		Revision:    st.Revision,
		ResetPrompt: core.RolloverPrompt,
	}

	for _, d := range core.Days() {
		page.Days = append(page.Days, dayHeader{Index: int(d), Short: d.Name()[:3]})
	}
	for i, name := range st.KidNames {
		page.Kids = append(page.Kids, kidColumn{Index: i, Name: name})
	}

	for _, t := range st.Tasks {
		row := taskRow{ID: t.ID, Name: t.Name, Value: fixed2(t.Value)}
		for kid := range st.KidNames {
			for _, d := range core.Days() {
				flags := st.Completions.Flags(kid, t.ID, d)
				c := cell{Kid: kid, Day: int(d)}
				for sub, checked := range flags {
					c.Flags = append(c.Flags, flagBox{Sub: sub, Checked: checked})
				}
				row.Cells = append(row.Cells, c)
			}
		}
		page.Rows = append(page.Rows, row)
	}

	for kid := range st.KidNames {
		for _, d := range core.Days() {
			page.DailyTotals = append(page.DailyTotals, core.FormatAmount(v.Earnings.Daily[kid][d]))
		}
	}

	for _, s := range v.Summary {
		page.Summary = append(page.Summary, summaryLine{
			Index:      s.Index,
			Name:       s.Name,
			Completed:  s.Completed,
			Weekly:     core.FormatAmount(s.Weekly),
			Monthly:    core.FormatAmount(s.Monthly),
			Cumulative: core.FormatAmount(s.Cumulative),
		})
	}
	return page
}

// apiScoreboard is the JSON shape of GET /api/scoreboard.
type apiScoreboard struct {
	Revision    uint64          `json:"revision"`
	Kids        []apiKid        `json:"kids"`
	Tasks       []apiTask       `json:"tasks"`
	Completions []apiCompletion `json:"completions"`
}

type apiKid struct {
	Index      int      `json:"index"`
	Name       string   `json:"name"`
	Daily      []string `json:"daily"`
	Weekly     string   `json:"weekly"`
	Monthly    string   `json:"monthly"`
	Cumulative string   `json:"cumulative"`
}

type apiTask struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type apiCompletion struct {
	Kid   int    `json:"kid"`
	Task  int64  `json:"task"`
	Day   int    `json:"day"`
	Flags []bool `json:"flags"`
}

func newAPIScoreboard(v services.View) apiScoreboard {
	st := v.State
	out := apiScoreboard{
		Revision:    st.Revision,
		Kids:        make([]apiKid, 0, len(st.KidNames)),
		Tasks:       make([]apiTask, 0, len(st.Tasks)),
		Completions: []apiCompletion{},
	}
	for kid, name := range st.KidNames {
		k := apiKid{
			Index:      kid,
			Name:       name,
			Weekly:     fixed2(v.Earnings.Weekly[kid]),
			Monthly:    fixed2(v.Earnings.Monthly[kid]),
			Cumulative: fixed2(v.Earnings.Cumulative[kid]),
		}
		for _, d := range core.Days() {
			k.Daily = append(k.Daily, fixed2(v.Earnings.Daily[kid][d]))
		}
		out.Kids = append(out.Kids, k)
	}
	for _, t := range st.Tasks {
		out.Tasks = append(out.Tasks, apiTask{ID: t.ID, Name: t.Name, Value: fixed2(t.Value)})
		for kid := range st.KidNames {
			for _, d := range core.Days() {
				f := st.Completions.Flags(kid, t.ID, d)
				if f.Count() == 0 {
					continue
				}
				out.Completions = append(out.Completions, apiCompletion{
					Kid: kid, Task: t.ID, Day: int(d), Flags: []bool{f[0], f[1], f[2]},
				})
			}
		}
	}
	return out
}
