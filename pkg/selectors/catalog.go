package selectors

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Version identifies the built-in catalog. Bump it whenever a list changes so
// screenshots and run history can be matched to the markup they targeted.
const Version = "2025.03-siakad"

// TextPrefix marks a selector that matches by visible text instead of CSS.
const TextPrefix = "text="

// Catalog holds ordered selector lists per logical field. Earlier entries win.
type Catalog struct {
	Version string `yaml:"version" json:"version"`

	LoginUsername []string `yaml:"login_username" json:"login_username"`
	LoginPassword []string `yaml:"login_password" json:"login_password"`
	LoginSubmit   []string `yaml:"login_submit" json:"login_submit"`
	LoginError    []string `yaml:"login_error" json:"login_error"`
	LoggedIn      []string `yaml:"logged_in" json:"logged_in"`

	PageIndicator []string `yaml:"page_indicator" json:"page_indicator"`
	AddButton     []string `yaml:"add_button" json:"add_button"`
	MenuEntry     []string `yaml:"menu_entry" json:"menu_entry"`

	Modal         []string `yaml:"modal" json:"modal"`
	FormIndicator []string `yaml:"form_indicator" json:"form_indicator"`

	Date              []string `yaml:"date" json:"date"`
	StartTime         []string `yaml:"start_time" json:"start_time"`
	EndTime           []string `yaml:"end_time" json:"end_time"`
	Location          []string `yaml:"location" json:"location"`
	Description       []string `yaml:"description" json:"description"`
	ActivityKind      []string `yaml:"activity_kind" json:"activity_kind"`
	Advisor           []string `yaml:"advisor" json:"advisor"`
	ParticipationMode []string `yaml:"participation_mode" json:"participation_mode"`
	Evidence          []string `yaml:"evidence" json:"evidence"`
	Submit            []string `yaml:"submit" json:"submit"`

	ValidationError []string `yaml:"validation_error" json:"validation_error"`
	SuccessText     []string `yaml:"success_text" json:"success_text"`
}

type field struct {
	name string
	list *[]string
}

func (c *Catalog) fields() []field {
	return []field{
		{"login_username", &c.LoginUsername},
		{"login_password", &c.LoginPassword},
		{"login_submit", &c.LoginSubmit},
		{"login_error", &c.LoginError},
		{"logged_in", &c.LoggedIn},
		{"page_indicator", &c.PageIndicator},
		{"add_button", &c.AddButton},
		{"menu_entry", &c.MenuEntry},
		{"modal", &c.Modal},
		{"form_indicator", &c.FormIndicator},
		{"date", &c.Date},
		{"start_time", &c.StartTime},
		{"end_time", &c.EndTime},
		{"location", &c.Location},
		{"description", &c.Description},
		{"activity_kind", &c.ActivityKind},
		{"advisor", &c.Advisor},
		{"participation_mode", &c.ParticipationMode},
		{"evidence", &c.Evidence},
		{"submit", &c.Submit},
		{"validation_error", &c.ValidationError},
		{"success_text", &c.SuccessText},
	}
}

func Default() *Catalog {
	return &Catalog{
		Version: Version,

		LoginUsername: []string{
			"#Username",
			"input[name='Username']",
			"input[name='username']",
			"input[type='text'][id*='user' i]",
			"form input[type='text']",
		},
		LoginPassword: []string{
			"#Password",
			"input[name='Password']",
			"input[name='password']",
			"input[type='password']",
		},
		LoginSubmit: []string{
			"button[type='submit']",
			"input[type='submit']",
			"#btnLogin",
			"text=Login",
			"text=Masuk",
		},
		LoginError: []string{
			".validation-summary-errors",
			".alert-danger",
			".field-validation-error",
			".text-danger",
			"text=Username atau password salah",
		},
		LoggedIn: []string{
			"a[href*='Logout']",
			"a[href*='LogOff']",
			"form#logoutForm",
			".navbar .user-menu",
			"text=Dashboard",
		},

		PageIndicator: []string{
			"#tblLogbook",
			"table[id*='logbook' i]",
			".content-header",
			"text=Logbook",
		},
		AddButton: []string{
			"#btnTambah",
			"button[data-target='#modalLogbook']",
			"a[href*='Create']",
			"button.btn-add",
			"text=Tambah",
		},
		MenuEntry: []string{
			"a[href*='Logbook']",
			"a[href*='Kegiatan']",
			"a[href*='Magang']",
			"text=Logbook",
			"text=Kegiatan Magang",
		},

		Modal: []string{
			"#modalLogbook",
			".modal.show",
			".modal.in",
			".modal-dialog",
		},
		FormIndicator: []string{
			"#Tanggal",
			"input[name='Tanggal']",
			"#Deskripsi",
			"textarea[name='Deskripsi']",
			"#Lokasi",
		},

		Date: []string{
			"#Tanggal",
			"input[name='Tanggal']",
			"input.datepicker",
			"input[name*='date' i]",
		},
		StartTime: []string{
			"#JamMulai",
			"input[name='JamMulai']",
			"input[name*='start' i]",
		},
		EndTime: []string{
			"#JamSelesai",
			"input[name='JamSelesai']",
			"input[name*='end' i]",
		},
		Location: []string{
			"#Lokasi",
			"input[name='Lokasi']",
			"input[name*='location' i]",
		},
		Description: []string{
			"#Deskripsi",
			"textarea[name='Deskripsi']",
			"textarea[name*='desc' i]",
			"textarea",
		},
		ActivityKind: []string{
			"#JenisKegiatan",
			"select[name='JenisKegiatan']",
			"select[name*='jenis' i]",
		},
		Advisor: []string{
			"#IsPembimbing",
			"input[type='checkbox'][name*='Pembimbing']",
			"input[type='checkbox'][name*='advisor' i]",
		},
		ParticipationMode: []string{
			"input[type='radio'][name='ModeKegiatan']",
			"input[type='radio'][name*='Mode']",
			"input[type='radio'][name*='mode' i]",
		},
		Evidence: []string{
			"#FileBukti",
			"input[type='file'][name='FileBukti']",
			"input[type='file']",
		},
		Submit: []string{
			"#btnSimpan",
			".modal-footer button[type='submit']",
			"button[type='submit']",
			"text=Simpan",
		},

		ValidationError: []string{
			".field-validation-error",
			".validation-summary-errors li",
			".alert-danger",
			".invalid-feedback",
		},
		SuccessText: []string{
			".alert-success",
			".toast-success",
			".swal2-success",
			"text=berhasil",
		},
	}
}

// Load returns the built-in catalog with every non-empty list from the YAML
// file at path replacing its default counterpart.
func Load(path string) (*Catalog, error) {
	catalog := Default()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read selector catalog: %w", err)
	}

	var override Catalog
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse selector catalog: %w", err)
	}

	catalog.Merge(&override)
	return catalog, nil
}

func (c *Catalog) Merge(override *Catalog) {
	if override.Version != "" {
		c.Version = override.Version
	}
	dst := c.fields()
	for i, f := range override.fields() {
		if len(*f.list) > 0 {
			*dst[i].list = append([]string(nil), *f.list...)
		}
	}
}

// Validate reports the first logical field left without selectors.
func (c *Catalog) Validate() error {
	for _, f := range c.fields() {
		if len(*f.list) == 0 {
			return fmt.Errorf("selector catalog %s: field %s has no selectors", c.Version, f.name)
		}
	}
	return nil
}

func (c *Catalog) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
