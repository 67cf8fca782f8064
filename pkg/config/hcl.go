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

package config

import (
	"context"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

// Define HCL schema
type hclConfig struct {
	Root  string    `hcl:"root,optional"`
	Files []hclFile `hcl:"file,block"`
}

type hclFile struct {
	Path   string    `hcl:"path,label"`
	Create bool      `hcl:"create,optional"`
	Rules  []hclRule `hcl:"rule,block"`
}

type hclRule struct {
	ID      string     `hcl:"id,label"`
	Action  string     `hcl:"action"`
	Payload string     `hcl:"payload,optional"`
	Expect  cty.Value  `hcl:"expect,optional"`
	Match   *hclMatch  `hcl:"match,block"`
	SkipIf  *hclMatch  `hcl:"skip_if,block"`
	Verify  *hclVerify `hcl:"verify,block"`
}

type hclMatch struct {
	Literal string    `hcl:"literal,optional"`
	Block   *hclBlock `hcl:"block,block"`
	Lines   *hclLines `hcl:"lines,block"`
	Node    *hclNode  `hcl:"node,block"`
}

type hclBlock struct {
	Start string `hcl:"start"`
	End   string `hcl:"end"`
}

type hclLines struct {
	Start int `hcl:"start"`
	End   int `hcl:"end"`
}

type hclNode struct {
	Language string `hcl:"language"`
	Type     string `hcl:"type"`
	Name     string `hcl:"name,optional"`
}

type hclVerify struct {
	Match  *hclMatch `hcl:"match,block"`
	Expect cty.Value `hcl:"expect,optional"`
	Syntax string    `hcl:"syntax,optional"`
}

// 📝 Parse parses the config from HCL
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	// Create evaluation context
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	// Decode HCL
	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	// Convert to model
	cfg := &Config{Root: hclCfg.Root}
	for _, f := range hclCfg.Files {
		file := FileSpec{Path: f.Path, Create: f.Create}
		for _, r := range f.Rules {
			expect, err := expectFromCty(r.Expect)
			if err != nil {
				return nil, errors.Errorf("%s: rule %s: %w", f.Path, r.ID, err)
			}
			spec := RuleSpec{
				ID:      r.ID,
				Action:  r.Action,
				Payload: r.Payload,
				Expect:  expect,
				Match:   r.Match.spec(),
				SkipIf:  r.SkipIf.spec(),
			}
			if r.Verify != nil {
				vexpect, err := expectFromCty(r.Verify.Expect)
				if err != nil {
					return nil, errors.Errorf("%s: rule %s: verify: %w", f.Path, r.ID, err)
				}
				spec.Verify = &VerifySpec{Match: r.Verify.Match.spec(), Expect: vexpect, Syntax: r.Verify.Syntax}
			}
			file.Rules = append(file.Rules, spec)
		}
		cfg.Files = append(cfg.Files, file)
	}

	return cfg, nil
}

func (m *hclMatch) spec() *MatchSpec {
	if m == nil {
		return nil
	}
	out := &MatchSpec{Literal: m.Literal}
	if m.Block != nil {
		out.Block = &BlockSpec{Start: m.Block.Start, End: m.Block.End}
	}
	if m.Lines != nil {
		out.Lines = &LinesSpec{Start: m.Lines.Start, End: m.Lines.End}
	}
	if m.Node != nil {
		out.Node = &NodeSpec{Language: m.Node.Language, Type: m.Node.Type, Name: m.Node.Name}
	}
	return out
}

// expectFromCty accepts a whole number or one of the keywords
func expectFromCty(v cty.Value) (Expect, error) {
	if v.IsNull() {
		return "", nil
	}
	if !v.IsKnown() {
		return "", errors.Errorf("expect must be known")
	}

	switch v.Type() {
	case cty.String:
		return Expect(v.AsString()), nil
	case cty.Number:
		var n int
		if err := gocty.FromCtyValue(v, &n); err != nil {
			return "", errors.Errorf("expect must be a whole number: %w", err)
		}
		return Expect(strconv.Itoa(n)), nil
	default:
		return "", errors.Errorf("expect must be a number, \"any\" or \"none\", got %s", v.Type().FriendlyName())
	}
}
