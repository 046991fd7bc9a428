package text

import (
	"bufio"
	"bytes"
	_ "embed" // use go embed to import template
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"

	"github.com/gookit/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/securego/pysec"
)

var (
	errorTheme   = color.New(color.FgLightWhite, color.BgRed)
	warningTheme = color.New(color.FgBlack, color.BgYellow)
	defaultTheme = color.New(color.FgWhite, color.BgBlack)

	//go:embed template.txt
	templateContent string
)

// WriteReport write a (colorized) report in text format
func WriteReport(w io.Writer, data *pysec.ReportInfo, enableColor bool) error {
	t, e := template.
		New("pysec").
		Funcs(plainTextFuncMap(enableColor)).
		Parse(templateContent)
	if e != nil {
		return e
	}

	return t.Execute(w, data)
}

func plainTextFuncMap(enableColor bool) template.FuncMap {
	if enableColor {
		return template.FuncMap{
			"highlight":  highlight,
			"danger":     color.Danger.Render,
			"notice":     color.Notice.Render,
			"success":    color.Success.Render,
			"printCode":  printCodeSnippet,
			"categories": categories,
		}
	}

	// by default those functions return the given content untouched
	return template.FuncMap{
		"highlight": func(t string, s pysec.Score, ignored bool) string {
			return t
		},
		"danger":     fmt.Sprint,
		"notice":     fmt.Sprint,
		"success":    fmt.Sprint,
		"printCode":  printCodeSnippet,
		"categories": categories,
	}
}

// categories renders category names as "Xss, Sqli".
func categories(names []string) string {
	if len(names) == 0 {
		return "None"
	}
	title := cases.Title(language.English)
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = title.String(name)
	}
	return strings.Join(out, ", ")
}

// highlight returns content t colored based on Score
func highlight(t string, s pysec.Score, ignored bool) string {
	if ignored {
		return defaultTheme.Sprint(t)
	}
	switch s {
	case pysec.High:
		return errorTheme.Sprint(t)
	case pysec.Medium:
		return warningTheme.Sprint(t)
	default:
		return defaultTheme.Sprint(t)
	}
}

// printCodeSnippet prints the code snippet from the issue by adding a marker to the affected line
func printCodeSnippet(issue *pysec.Issue) string {
	line, err := strconv.Atoi(issue.Line)
	if err != nil {
		line = -1
	}
	marker := strconv.Itoa(line) + ":"
	scanner := bufio.NewScanner(strings.NewReader(issue.Code))
	var buf bytes.Buffer
	for scanner.Scan() {
		codeLine := scanner.Text()
		if strings.HasPrefix(codeLine, marker) {
			codeLine = "  > " + codeLine + "\n"
		} else {
			codeLine = "    " + codeLine + "\n"
		}
		buf.WriteString(codeLine)
	}
	return buf.String()
}
