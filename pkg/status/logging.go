// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package status

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// 🎨 Display configuration
const (
	fileIndent  = 4  // spaces to indent file entries
	nameWidth   = 35 // Base width for filename
	stateWidth  = 12 // Width for the file state
	detailWidth = 24 // Width for the detail text
)

// 🎯 FormatFileLine formats one file's state as an aligned console line
func FormatFileLine(path string, state FileState, changed bool, detail string) string {
	var prefix string
	switch {
	case state == StateRolledBack:
		prefix = color.RedString("✗")
	case state == StateCommitted && changed:
		prefix = color.GreenString("✓")
	case state == StateCommitted:
		prefix = color.HiBlackString("-")
	default:
		prefix = color.YellowString("⟳")
	}

	namePart := fmt.Sprintf("%-*s", nameWidth, path)
	statePart := fmt.Sprintf("%-*s", stateWidth, state)
	detailPart := fmt.Sprintf("%-*s", detailWidth, detail)

	return fmt.Sprintf("%s%s %s %s %s",
		strings.Repeat(" ", fileIndent),
		prefix,
		namePart,
		statePart,
		detailPart,
	)
}
