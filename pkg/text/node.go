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

package text

import (
	"context"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"gitlab.com/tozd/go/errors"
)

// 🌳 languages maps a language name to its tree-sitter grammar
var languages = map[string]func() *sitter.Language{
	"go":         golang.GetLanguage,
	"python":     python.GetLanguage,
	"javascript": javascript.GetLanguage,
	"typescript": typescript.GetLanguage,
	"rust":       rust.GetLanguage,
}

// Languages returns the supported language names, sorted
func Languages() []string {
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Node matches syntax nodes of a given type, optionally filtered by the
// text of their "name" field. Spans come back in document order.
type Node struct {
	Language string
	Type     string
	Name     string
}

func (p Node) String() string {
	if p.Name == "" {
		return fmt.Sprintf("%s node %s", p.Language, p.Type)
	}
	return fmt.Sprintf("%s node %s %q", p.Language, p.Type, p.Name)
}

func (p Node) find(ctx context.Context, buf *Buffer) ([]Span, error) {
	if p.Type == "" {
		return nil, errors.Errorf("%w: node pattern needs a type", ErrMalformedPattern)
	}
	tree, err := parse(ctx, p.Language, buf)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	src := []byte(buf.content)
	var spans []Span
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == p.Type && p.nameMatches(n, src) {
			spans = append(spans, Span{Start: int(n.StartByte()), End: int(n.EndByte())})
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(tree.RootNode())
	return spans, nil
}

func (p Node) nameMatches(n *sitter.Node, src []byte) bool {
	if p.Name == "" {
		return true
	}
	if name := n.ChildByFieldName("name"); name != nil {
		return name.Content(src) == p.Name
	}
	// type_declaration wraps a type_spec which carries the name
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if name := n.NamedChild(i).ChildByFieldName("name"); name != nil && name.Content(src) == p.Name {
			return true
		}
	}
	return false
}

// SyntaxErrors returns the number of ERROR or MISSING nodes in the parse tree of buf
func SyntaxErrors(ctx context.Context, language string, buf *Buffer) (int, error) {
	tree, err := parse(ctx, language, buf)
	if err != nil {
		return 0, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return 0, nil
	}
	count := 0
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "ERROR" || n.IsMissing() {
			count++
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	if count == 0 {
		count = 1
	}
	return count, nil
}

func parse(ctx context.Context, language string, buf *Buffer) (*sitter.Tree, error) {
	lang, ok := languages[language]
	if !ok {
		return nil, errors.Errorf("%w: unsupported language %q", ErrMalformedPattern, language)
	}
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang())

	tree, err := parser.ParseCtx(ctx, nil, []byte(buf.content))
	if err != nil {
		return nil, errors.Errorf("parsing %s as %s: %w", buf.path, language, err)
	}
	return tree, nil
}
