// MIT License
//
// Copyright (c) 2026 Kolin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
package banner

import (
	"strconv"

	"ipdossier/internal/version"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
)

// Settings are the runtime choices shown under the logo.
type Settings struct {
	Backend   string
	Location  string
	Namespace string
	Listen    string
	InboxDir  string
	GeoIP     bool
}

func Print(s Settings) {
	logo, _ := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithRGB("IP", pterm.NewRGB(46, 134, 222)),
		putils.LettersFromStringWithRGB("Dossier", pterm.NewRGB(0, 0, 0))).
		Srender()
	pterm.DefaultCenter.Print(logo)

	pterm.DefaultCenter.Print(
		pterm.DefaultHeader.
			WithFullWidth().
			WithBackgroundStyle(pterm.NewStyle(pterm.BgLightBlue)).
			WithMargin(5).
			Sprint(pterm.White("IPDossier " + version.Version)),
	)

	inbox := "disabled"
	if s.InboxDir != "" {
		inbox = s.InboxDir
	}
	rows := pterm.TableData{
		{"Store", s.Backend + " (" + s.Location + ")"},
		{"Namespace", s.Namespace},
		{"Listen", s.Listen},
		{"Inbox", inbox},
		{"GeoIP", strconv.FormatBool(s.GeoIP)},
	}
	_ = pterm.DefaultTable.WithData(rows).WithLeftAlignment().Render()
}
