// Package shaderc compiles WGSL shader sources to SPIR-V words ready for
// vulkaninja.Device.CreateShader.
//
// Sources go through a small line preprocessor first. Keywords are defined
// with #define semantics and can be tested with #ifdef, #ifndef, #else and
// #endif. #include "file" pulls in a file from the including file's directory
// or one of the search paths.
package shaderc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/naga"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/zzxzzk115/vulkaninja"
	"github.com/zzxzzk115/vulkaninja/spirv"
)

// DefaultSearchPath is always searched last for includes
const DefaultSearchPath = "assets/shaders"

const maxIncludeDepth = 32

// Keyword is a preprocessor definition. An empty Value defines the name only.
type Keyword struct {
	Name  string
	Value string
}

func Define(name string) Keyword {
	return Keyword{Name: name}
}

func DefineValue(name, value string) Keyword {
	return Keyword{Name: name, Value: value}
}

type Source struct {
	Code string
	// Name is used in diagnostics and as the base for relative includes
	Name string
	// Stage is the stage EntryPoint must have, zero skips the check
	Stage vk.ShaderStageFlagBits
	// EntryPoint defaults to main
	EntryPoint  string
	Keywords    []Keyword
	SearchPaths []string
}

type Result struct {
	Words []uint32
	// Message is the compiler diagnostic, empty on success
	Message string
}

// Compile preprocesses and compiles src. On failure the returned Result
// carries the diagnostic as well as the error.
func Compile(src Source) (Result, error) {
	code, err := Preprocess(src)
	if err != nil {
		return Result{Message: err.Error()}, err
	}

	spv, err := naga.Compile(code)
	if err != nil {
		err = errors.Wrapf(err, "compile %s", src.displayName())
		return Result{Message: err.Error()}, err
	}
	words, err := spirv.Words(spv)
	if err != nil {
		return Result{Message: err.Error()}, err
	}
	if err := checkEntryPoint(words, src.entryPoint(), src.Stage); err != nil {
		err = errors.Wrap(err, src.displayName())
		return Result{Message: err.Error()}, err
	}
	return Result{Words: words}, nil
}

// CompileFile reads path and compiles it like Compile
func CompileFile(path string, stage vk.ShaderStageFlagBits, entryPoint string, keywords ...Keyword) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "read shader %s", path)
		return Result{Message: err.Error()}, err
	}
	return Compile(Source{
		Code:       string(data),
		Name:       path,
		Stage:      stage,
		EntryPoint: entryPoint,
		Keywords:   keywords,
	})
}

// CreateShader compiles src and creates a shader module from it on d
func CreateShader(d *vulkaninja.Device, src Source) (*vulkaninja.Shader, error) {
	res, err := Compile(src)
	if err != nil {
		return nil, err
	}
	stage := src.Stage
	if stage == 0 {
		mod, err := spirv.Reflect(res.Words)
		if err != nil {
			return nil, err
		}
		if stage, err = entryStage(mod, src.entryPoint()); err != nil {
			return nil, err
		}
	}
	return d.CreateShader(vulkaninja.ShaderCreateInfo{
		Code:       res.Words,
		Stage:      stage,
		EntryPoint: src.entryPoint(),
	})
}

func (s *Source) entryPoint() string {
	if s.EntryPoint == "" {
		return "main"
	}
	return s.EntryPoint
}

func (s *Source) displayName() string {
	if s.Name == "" {
		return "<source>"
	}
	return s.Name
}

func entryStage(mod *spirv.Module, name string) (vk.ShaderStageFlagBits, error) {
	for _, ep := range mod.EntryPoints {
		if ep.Name != name {
			continue
		}
		stage, ok := vulkaninja.StageFromModel(ep.Model)
		if !ok {
			return 0, errors.Errorf("entry point %q has unsupported execution model %d", name, ep.Model)
		}
		return stage, nil
	}
	return 0, errors.Errorf("entry point %q not found", name)
}

func checkEntryPoint(words []uint32, name string, stage vk.ShaderStageFlagBits) error {
	mod, err := spirv.Reflect(words)
	if err != nil {
		return err
	}
	got, err := entryStage(mod, name)
	if err != nil {
		return err
	}
	if stage != 0 && got != stage {
		return errors.Errorf("entry point %q has stage %#x, want %#x", name, got, stage)
	}
	return nil
}

// Preprocess expands includes, conditionals and keyword definitions of src
func Preprocess(src Source) (string, error) {
	p := &preprocessor{
		defines:     make(map[string]string),
		searchPaths: append(append([]string(nil), src.SearchPaths...), DefaultSearchPath),
	}
	for _, k := range src.Keywords {
		if k.Name == "" {
			return "", errors.New("keyword without name")
		}
		p.defines[k.Name] = k.Value
	}
	var out strings.Builder
	if err := p.run(&out, src.Code, src.displayName(), 0); err != nil {
		return "", err
	}
	return out.String(), nil
}

type preprocessor struct {
	defines     map[string]string
	searchPaths []string
}

type condFrame struct {
	active   bool
	parent   bool
	seenElse bool
}

func (p *preprocessor) run(out *strings.Builder, code, name string, depth int) error {
	if depth > maxIncludeDepth {
		return errors.Errorf("%s: includes nested too deep", name)
	}
	var stack []condFrame
	active := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].active
	}

	for i, line := range strings.Split(code, "\n") {
		at := fmt.Sprintf("%s:%d", name, i+1)
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			if active() {
				out.WriteString(p.substitute(line))
				out.WriteByte('\n')
			}
			continue
		}

		directive, arg, _ := strings.Cut(trimmed[1:], " ")
		arg = strings.TrimSpace(arg)
		switch directive {
		case "ifdef", "ifndef":
			_, defined := p.defines[arg]
			parent := active()
			stack = append(stack, condFrame{active: parent && defined == (directive == "ifdef"), parent: parent})
		case "else":
			if len(stack) == 0 || stack[len(stack)-1].seenElse {
				return errors.Errorf("%s: unexpected #else", at)
			}
			top := &stack[len(stack)-1]
			top.active = top.parent && !top.active
			top.seenElse = true
		case "endif":
			if len(stack) == 0 {
				return errors.Errorf("%s: unexpected #endif", at)
			}
			stack = stack[:len(stack)-1]
		case "define":
			if !active() {
				continue
			}
			key, value, _ := strings.Cut(arg, " ")
			if key == "" {
				return errors.Errorf("%s: #define without name", at)
			}
			p.defines[key] = strings.TrimSpace(value)
		case "include":
			if !active() {
				continue
			}
			file := strings.Trim(arg, `"<>`)
			path, data, err := p.open(file, filepath.Dir(name))
			if err != nil {
				return errors.Wrap(err, at)
			}
			if err := p.run(out, data, path, depth+1); err != nil {
				return err
			}
		default:
			return errors.Errorf("%s: unknown directive #%s", at, directive)
		}
	}
	if len(stack) != 0 {
		return errors.Errorf("%s: missing #endif", name)
	}
	return nil
}

func (p *preprocessor) open(file, dir string) (string, string, error) {
	for _, base := range append([]string{dir}, p.searchPaths...) {
		path := filepath.Join(base, file)
		data, err := os.ReadFile(path)
		if err == nil {
			return path, string(data), nil
		}
	}
	return "", "", errors.Errorf("include %q not found", file)
}

// substitute replaces every defined keyword with a value by that value.
// Only whole identifiers are replaced.
func (p *preprocessor) substitute(line string) string {
	var out strings.Builder
	for i := 0; i < len(line); {
		if !isIdentStart(line[i]) {
			out.WriteByte(line[i])
			i++
			continue
		}
		j := i + 1
		for j < len(line) && isIdent(line[j]) {
			j++
		}
		word := line[i:j]
		if v, ok := p.defines[word]; ok && v != "" {
			out.WriteString(v)
		} else {
			out.WriteString(word)
		}
		i = j
	}
	return out.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdent(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
