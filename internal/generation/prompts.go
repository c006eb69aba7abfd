package generation

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

type promptPair struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type promptFile struct {
	Version   int        `yaml:"version"`
	Discovery promptPair `yaml:"discovery"`
	Section   promptPair `yaml:"section"`
}

// Prompts holds the parsed system/user templates for each generation call.
type Prompts struct {
	discoverySystem *template.Template
	discoveryUser   *template.Template
	sectionSystem   *template.Template
	sectionUser     *template.Template
}

var promptFuncs = template.FuncMap{
	"deref": func(p *int) int {
		if p == nil {
			return 0
		}
		return *p
	},
}

// LoadPrompts parses the file at path, or the embedded defaults when path is
// empty.
func LoadPrompts(path string) (*Prompts, error) {
	data := defaultPrompts
	if p := strings.TrimSpace(path); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read prompts file: %w", err)
		}
		data = b
	}
	var pf promptFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}

	out := &Prompts{}
	for _, t := range []struct {
		name string
		text string
		dst  **template.Template
	}{
		{"discovery.system", pf.Discovery.System, &out.discoverySystem},
		{"discovery.user", pf.Discovery.User, &out.discoveryUser},
		{"section.system", pf.Section.System, &out.sectionSystem},
		{"section.user", pf.Section.User, &out.sectionUser},
	} {
		if strings.TrimSpace(t.text) == "" {
			return nil, fmt.Errorf("prompt %s is empty", t.name)
		}
		tpl, err := template.New(t.name).Funcs(promptFuncs).Parse(t.text)
		if err != nil {
			return nil, fmt.Errorf("parse prompt %s: %w", t.name, err)
		}
		*t.dst = tpl
	}
	return out, nil
}

func (p *Prompts) Discovery(in DiscoveryInput) (system, user string, err error) {
	return render(p.discoverySystem, p.discoveryUser, in)
}

func (p *Prompts) Section(in SectionInput) (system, user string, err error) {
	return render(p.sectionSystem, p.sectionUser, in)
}

func render(sys, usr *template.Template, data any) (string, string, error) {
	var a, b bytes.Buffer
	if err := sys.Execute(&a, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", sys.Name(), err)
	}
	if err := usr.Execute(&b, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", usr.Name(), err)
	}
	return strings.TrimSpace(a.String()), strings.TrimSpace(b.String()), nil
}
