package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"construct-chat/internal/models"
)

// constructSeed is the on-disk persona format under settings/constructs
type constructSeed struct {
	ID                string   `yaml:"id"`
	Name              string   `yaml:"name"`
	Nickname          string   `yaml:"nickname"`
	Avatar            string   `yaml:"avatar"`
	VisualDescription string   `yaml:"visual_description"`
	Personality       string   `yaml:"personality"`
	Background        string   `yaml:"background"`
	Relationships     []string `yaml:"relationships"`
	Interests         []string `yaml:"interests"`
	Greetings         []string `yaml:"greetings"`
	Farewells         []string `yaml:"farewells"`
}

// LoadConstructSeeds reads every *.yaml persona in dir, sorted by file name.
// A missing directory yields no seeds. Files without an id use the file name.
func LoadConstructSeeds(dir string) ([]models.Construct, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, errors.Wrap(err, "glob construct seeds")
	}
	sort.Strings(paths)

	constructs := make([]models.Construct, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		var seed constructSeed
		if err := yaml.Unmarshal(data, &seed); err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
		if strings.TrimSpace(seed.Name) == "" {
			return nil, errors.Errorf("construct seed %s has no name", path)
		}
		if seed.ID == "" {
			seed.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		constructs = append(constructs, seed.toConstruct())
	}
	return constructs, nil
}

func (s constructSeed) toConstruct() models.Construct {
	return models.Construct{
		ID:                s.ID,
		Name:              s.Name,
		Nickname:          s.Nickname,
		Avatar:            s.Avatar,
		Commands:          []string{},
		VisualDescription: s.VisualDescription,
		Personality:       s.Personality,
		Background:        s.Background,
		Relationships:     nonNil(s.Relationships),
		Interests:         nonNil(s.Interests),
		Greetings:         nonNil(s.Greetings),
		Farewells:         nonNil(s.Farewells),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
