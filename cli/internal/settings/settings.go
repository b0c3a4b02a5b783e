// Package settings persists the API key and model in a JSON file and runs the
// interactive flow that creates it.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"

	"aicommit/cli/internal/erruser"
	"aicommit/cli/internal/groq"
)

const (
	_appDir   = "ai-commit"
	_fileName = "config.json"
)

// Settings is the persisted file. An empty field means absent.
type Settings struct {
	APIKey string `json:"apikey" validate:"required" jsonschema:"title=API key,description=Groq API key sent as a bearer token"`
	Model  string `json:"model" validate:"required" jsonschema:"title=Model,description=Model identifier as listed by the provider,example=qwen-2.5-coder-32b"`
}

// Merge returns s with empty fields filled from defaults.
func (s Settings) Merge(defaults Settings) Settings {
	if s.APIKey == "" {
		s.APIKey = defaults.APIKey
	}
	if s.Model == "" {
		s.Model = defaults.Model
	}
	return s
}

// Prompter asks the user for values during Configure.
type Prompter interface {
	// Text reads a line; def is returned when the user enters nothing.
	Text(label, def, help string) (string, error)
	// Select returns one of options; filter narrows the initial list.
	Select(label string, options []string, filter string) (string, error)
}

// ModelLister returns the provider's live model list.
type ModelLister interface {
	Models(ctx context.Context) ([]groq.Model, error)
}

// Store loads, configures, and saves one settings file.
type Store struct {
	path      string
	prompter  Prompter
	newLister func(apiKey string) ModelLister
}

// DefaultPath returns <UserConfigDir>/ai-commit/config.json.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", erruser.New(erruser.Configuration, "Could not determine config directory.", err)
	}
	return filepath.Join(dir, _appDir, _fileName), nil
}

// NewStore returns a Store for path. newLister builds a model lister for a
// freshly entered API key.
func NewStore(path string, p Prompter, newLister func(apiKey string) ModelLister) *Store {
	return &Store{path: path, prompter: p, newLister: newLister}
}

// Path returns the settings file path.
func (s *Store) Path() string { return s.path }

// Load reads the settings file. A missing file, or one without an API key
// or model, runs Configure; values already in the file are merged over
// defaults first.
func (s *Store) Load(ctx context.Context, defaults Settings) (Settings, error) {
	cur, err := s.read()
	if errors.Is(err, fs.ErrNotExist) {
		return s.Configure(ctx, defaults)
	}
	if err != nil {
		return Settings{}, err
	}
	if validate.Struct(cur) != nil {
		return s.Configure(ctx, cur.Merge(defaults))
	}
	return cur, nil
}

// Read returns the file contents without prompting. A missing file returns
// an error wrapping fs.ErrNotExist.
func (s *Store) Read() (Settings, error) {
	return s.read()
}

func (s *Store) read() (Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Settings{}, erruser.New(erruser.Configuration, "No settings file; run ai-commit configure.", err)
		}
		return Settings{}, erruser.New(erruser.Configuration, "Could not read settings file "+s.path+".", err)
	}
	var cur Settings
	if err := json.Unmarshal(data, &cur); err != nil {
		return Settings{}, erruser.New(erruser.Configuration, "Settings file "+s.path+" is not valid JSON.", err)
	}
	cur.APIKey = strings.TrimSpace(cur.APIKey)
	cur.Model = strings.TrimSpace(cur.Model)
	return cur, nil
}

// Configure prompts for the API key and model, then saves them. defaults
// pre-fill the key prompt and the model filter.
func (s *Store) Configure(ctx context.Context, defaults Settings) (Settings, error) {
	if s.prompter == nil {
		return Settings{}, erruser.New(erruser.Configuration, "Settings are incomplete and no terminal is available; set AI_COMMIT_API_KEY and run ai-commit configure.", nil)
	}
	key, err := s.prompter.Text("Groq API key", defaults.APIKey, "Create one at https://console.groq.com/keys")
	if err != nil {
		return Settings{}, erruser.New(erruser.Configuration, "Could not read the API key.", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return Settings{}, erruser.New(erruser.Configuration, "An API key is required.", nil)
	}

	models, err := s.newLister(key).Models(ctx)
	if err != nil {
		return Settings{}, err
	}
	ids := modelIDs(models)
	if len(ids) == 0 {
		return Settings{}, erruser.New(erruser.Configuration, "The provider returned no models for this API key.", nil)
	}
	model, err := s.prompter.Select("Model", ids, defaults.Model)
	if err != nil {
		return Settings{}, erruser.New(erruser.Configuration, "Could not read the model selection.", err)
	}

	out := Settings{APIKey: key, Model: strings.TrimSpace(model)}
	if err := s.Save(out); err != nil {
		return Settings{}, err
	}
	return out, nil
}

// Save validates v and replaces the file atomically (temp file + rename,
// mode 0600).
func (s *Store) Save(v Settings) error {
	if err := validate.Struct(v); err != nil {
		return erruser.New(erruser.Configuration, "Settings need both an API key and a model.", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return erruser.New(erruser.Configuration, "Could not create settings directory.", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return erruser.New(erruser.Configuration, "Could not save settings.", err)
	}
	data = append(data, '\n')
	f, err := os.CreateTemp(dir, "config.*.tmp")
	if err != nil {
		return erruser.New(erruser.Configuration, "Could not save settings.", err)
	}
	tmpPath := f.Name()
	defer func() { _ = os.Remove(tmpPath) }()
	if err := f.Chmod(0600); err != nil {
		_ = f.Close()
		return erruser.New(erruser.Configuration, "Could not save settings.", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return erruser.New(erruser.Configuration, "Could not save settings.", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return erruser.New(erruser.Configuration, "Could not save settings.", err)
	}
	if err := f.Close(); err != nil {
		return erruser.New(erruser.Configuration, "Could not save settings.", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return erruser.New(erruser.Configuration, "Could not save settings.", err)
	}
	return nil
}

// ValidateModel reports whether model is in the live model list.
func ValidateModel(ctx context.Context, lister ModelLister, model string) (bool, error) {
	m, err := FindModel(ctx, lister, model)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

// FindModel returns the descriptor for model, or nil when the provider does
// not list it.
func FindModel(ctx context.Context, lister ModelLister, model string) (*groq.Model, error) {
	models, err := lister.Models(ctx)
	if err != nil {
		return nil, err
	}
	for i := range models {
		if models[i].ID == model {
			return &models[i], nil
		}
	}
	return nil, nil
}

// Schema returns the JSON Schema of the settings file.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{ExpandedStruct: true}
	schema := r.Reflect(&Settings{})
	schema.Title = "ai-commit settings"
	return json.MarshalIndent(schema, "", "  ")
}

func modelIDs(models []groq.Model) []string {
	ids := make([]string, 0, len(models))
	seen := make(map[string]bool, len(models))
	for _, m := range models {
		if m.ID == "" || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids
}

var validate = validator.New(validator.WithRequiredStructEnabled())
