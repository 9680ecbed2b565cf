// Package messages holds every user-facing text of the bot. The built-in
// catalog is embedded; an optional YAML file overrides individual entries.
package messages

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

type Preview struct {
	Header         string `yaml:"header"`
	Line           string `yaml:"line"`
	TextDetail     string `yaml:"text_detail"`
	DurationDetail string `yaml:"duration_detail"`
	NameDetail     string `yaml:"name_detail"`
	WithLocation   string `yaml:"with_location"`
	Footer         string `yaml:"footer"`
}

type Errors struct {
	NoActiveDraft          string `yaml:"no_active_draft"`
	WrongPhaseContent      string `yaml:"wrong_phase_content"`
	WrongPhaseLocation     string `yaml:"wrong_phase_location"`
	WrongPhaseConfirmation string `yaml:"wrong_phase_confirmation"`
	EmptyDraft             string `yaml:"empty_draft"`
	DispatchFailed         string `yaml:"dispatch_failed"`
	Internal               string `yaml:"internal"`
	StoryNotFound          string `yaml:"story_not_found"`
}

type Callbacks struct {
	Sent      string `yaml:"sent"`
	Cancelled string `yaml:"cancelled"`
}

type KindLabel struct {
	Icon string `yaml:"icon"`
	Name string `yaml:"name"`
}

type Archive struct {
	TitleAttributed string `yaml:"title_attributed"`
	TitleAnonymous  string `yaml:"title_anonymous"`
	Author          string `yaml:"author"`
	AuthorID        string `yaml:"author_id"`
	NoHandle        string `yaml:"no_handle"`
	Date            string `yaml:"date"`
	DateLayout      string `yaml:"date_layout"`
	Items           string `yaml:"items"`
	WithLocation    string `yaml:"with_location"`
	Separator       string `yaml:"separator"`
	PartText        string `yaml:"part_text"`
	PartTextLabel   string `yaml:"part_text_label"`
	PartMedia       string `yaml:"part_media"`
	Location        string `yaml:"location"`
	Footer          string `yaml:"footer"`
}

type Catalog struct {
	Welcome          string               `yaml:"welcome"`
	StoryStarted     string               `yaml:"story_started"`
	StartedAlert     string               `yaml:"started_alert"`
	UnreachableAlert string               `yaml:"unreachable_alert"`
	StartNotHere     string               `yaml:"start_not_here"`
	ItemAdded        string               `yaml:"item_added"`
	SendMore         string               `yaml:"send_more"`
	LocationRequest  string               `yaml:"location_request"`
	LocationAdded    string               `yaml:"location_added"`
	BackToEditing    string               `yaml:"back_to_editing"`
	KeyboardClosed   string               `yaml:"keyboard_closed"`
	Cancelled        string               `yaml:"cancelled"`
	SentAttributed   string               `yaml:"sent_attributed"`
	SentAnonymous    string               `yaml:"sent_anonymous"`
	Preview          Preview              `yaml:"preview"`
	Errors           Errors               `yaml:"errors"`
	Buttons          map[string]string    `yaml:"buttons"`
	Callbacks        Callbacks            `yaml:"callbacks"`
	Kinds            map[string]KindLabel `yaml:"kinds"`
	UntitledAudio    string               `yaml:"untitled_audio"`
	Archive          Archive              `yaml:"archive"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c := &Catalog{}
	if err := yaml.Unmarshal(defaultCatalog, c); err != nil {
		panic(fmt.Sprintf("messages: embedded catalog is invalid: %v", err))
	}
	return c
}

// Load returns the default catalog with entries from path laid over it.
// An empty path yields the defaults.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read messages file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("parse messages file %s: %w", path, err)
	}
	return c, nil
}

// Button returns the label for an action, falling back to the action name.
func (c *Catalog) Button(action string) string {
	if label, ok := c.Buttons[action]; ok {
		return label
	}
	return action
}

// Kind returns the icon and name for a content kind.
func (c *Catalog) Kind(kind string) KindLabel {
	if label, ok := c.Kinds[kind]; ok {
		return label
	}
	return KindLabel{Icon: "📎", Name: kind}
}
