// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package distro

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var embeddedRegistryYAML []byte

var (
	// ErrUnknownDistribution is returned when a distribution name is
	// not present in the registry.
	ErrUnknownDistribution = errors.New("unknown distribution")

	// ErrUnknownVariant is returned when a distribution exists but
	// does not offer the requested variant.
	ErrUnknownVariant = errors.New("unknown variant")

	// ErrUnsupportedArch is returned when the distribution has no
	// image for the host architecture.
	ErrUnsupportedArch = errors.New("unsupported architecture")
)

// Descriptor describes one distribution. Descriptors are immutable
// after registry load.
type Descriptor struct {
	// Name is the registry key (lowercase, e.g. "alpine").
	Name string `yaml:"name"`

	// Description is a short markdown description shown by
	// "rootbox distro info".
	Description string `yaml:"description,omitempty"`

	// DefaultVariant is used when the caller does not pass --type.
	DefaultVariant string `yaml:"default_variant"`

	// Arches lists the canonical architectures the distribution
	// supports (subset of arm64, arm, x86_64, x86).
	Arches []string `yaml:"arches"`

	// ArchAliases maps canonical architecture names to the names the
	// distribution's mirror uses in URLs and file names.
	ArchAliases map[string]string `yaml:"arch_aliases,omitempty"`

	// Variants is the ordered list of offered variants.
	Variants []Variant `yaml:"variants"`
}

// Variant is one flavor of a distribution's root filesystem.
type Variant struct {
	// Name is the variant label (e.g. "minirootfs", "minimal").
	Name string `yaml:"name"`

	// URL is the download location. The literal "{arch}" is replaced
	// with the distribution-specific architecture name.
	URL string `yaml:"url"`

	// Checksums maps the distribution-specific architecture name to a
	// lower-case hex sha256 (64 chars) or sha512 (128 chars) digest.
	// Absent entries mean the mirror publishes no stable digest; the
	// fetcher then skips verification.
	Checksums map[string]string `yaml:"checksums,omitempty"`

	// Size is the approximate download size in bytes, if known.
	// Display only.
	Size int64 `yaml:"size,omitempty"`
}

// Source is a fully resolved download: the output of Registry.Resolve.
type Source struct {
	Distribution string
	Variant      string
	// Arch is the distribution-specific architecture name that was
	// substituted into the URL.
	Arch string
	URL  string
	// Checksum is the expected hex digest, or "" when the registry
	// declares none.
	Checksum string
	Size     int64
}

// Filename returns the base name of the source URL, used as the local
// archive name in the resources directory.
func (s Source) Filename() string {
	name := s.URL
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "?"); i >= 0 {
		name = name[:i]
	}
	return name
}

// Registry holds the loaded distribution descriptors.
type Registry struct {
	ordered []string
	byName  map[string]*Descriptor
}

type registryFile struct {
	Distributions []Descriptor `yaml:"distributions"`
}

// Load parses the embedded registry and then any *.yaml / *.yml files
// in overrideDir (lexical order). An override descriptor with the same
// name replaces the embedded one wholesale; new names are appended.
// Pass "" to load only the embedded registry.
func Load(overrideDir string) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Descriptor)}
	if err := r.merge(embeddedRegistryYAML, "embedded registry"); err != nil {
		return nil, err
	}
	if overrideDir == "" {
		return r, nil
	}

	entries, err := os.ReadDir(overrideDir)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("reading registry override dir %s: %w", overrideDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(overrideDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading registry override %s: %w", path, err)
		}
		if err := r.merge(data, path); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) merge(data []byte, origin string) error {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing %s: %w", origin, err)
	}
	for i := range file.Distributions {
		d := file.Distributions[i]
		if d.Name == "" {
			return fmt.Errorf("%s: distribution with empty name", origin)
		}
		if d.DefaultVariant == "" {
			return fmt.Errorf("%s: distribution %s has no default_variant", origin, d.Name)
		}
		if _, err := d.variant(d.DefaultVariant); err != nil {
			return fmt.Errorf("%s: distribution %s: default variant: %w", origin, d.Name, err)
		}
		name := strings.ToLower(d.Name)
		if _, exists := r.byName[name]; !exists {
			r.ordered = append(r.ordered, name)
		}
		r.byName[name] = &d
	}
	return nil
}

// Names returns the distribution names in registry order (embedded
// order, then first-seen override order).
func (r *Registry) Names() []string {
	out := make([]string, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Describe returns the descriptor for a distribution.
func (r *Registry) Describe(distribution string) (*Descriptor, error) {
	d, ok := r.byName[strings.ToLower(distribution)]
	if !ok {
		return nil, fmt.Errorf("%w: %s (known: %s)",
			ErrUnknownDistribution, distribution, strings.Join(r.ordered, ", "))
	}
	return d, nil
}

// DefaultVariant returns the documented default variant for a
// distribution, so that omitting --type is always valid.
func (r *Registry) DefaultVariant(distribution string) (string, error) {
	d, err := r.Describe(distribution)
	if err != nil {
		return "", err
	}
	return d.DefaultVariant, nil
}

// Resolve produces the download source for a distribution, variant and
// canonical host architecture. An empty variant selects the default.
func (r *Registry) Resolve(distribution, variant, arch string) (Source, error) {
	d, err := r.Describe(distribution)
	if err != nil {
		return Source{}, err
	}
	if variant == "" {
		variant = d.DefaultVariant
	}
	v, err := d.variant(variant)
	if err != nil {
		return Source{}, fmt.Errorf("distribution %s: %w", d.Name, err)
	}
	mirrorArch, err := d.mirrorArch(arch)
	if err != nil {
		return Source{}, fmt.Errorf("distribution %s: %w", d.Name, err)
	}

	src := Source{
		Distribution: d.Name,
		Variant:      v.Name,
		Arch:         mirrorArch,
		URL:          strings.ReplaceAll(v.URL, "{arch}", mirrorArch),
		Size:         v.Size,
	}
	if sum, ok := v.Checksums[mirrorArch]; ok {
		src.Checksum = strings.ToLower(sum)
	}
	return src, nil
}

func (d *Descriptor) variant(name string) (*Variant, error) {
	for i := range d.Variants {
		if d.Variants[i].Name == name {
			return &d.Variants[i], nil
		}
	}
	labels := make([]string, len(d.Variants))
	for i := range d.Variants {
		labels[i] = d.Variants[i].Name
	}
	return nil, fmt.Errorf("%w: %s (available: %s)",
		ErrUnknownVariant, name, strings.Join(labels, ", "))
}

// mirrorArch maps a canonical architecture to the mirror's name for it,
// verifying the distribution supports it at all.
func (d *Descriptor) mirrorArch(arch string) (string, error) {
	supported := false
	for _, a := range d.Arches {
		if a == arch {
			supported = true
			break
		}
	}
	if !supported {
		return "", fmt.Errorf("%w: %s (supported: %s)",
			ErrUnsupportedArch, arch, strings.Join(d.Arches, ", "))
	}
	if alias, ok := d.ArchAliases[arch]; ok {
		return alias, nil
	}
	return arch, nil
}

// SupportsArch reports whether the distribution has an image for the
// canonical architecture.
func (d *Descriptor) SupportsArch(arch string) bool {
	_, err := d.mirrorArch(arch)
	return err == nil
}

// VariantNames returns the variant labels in declaration order.
func (d *Descriptor) VariantNames() []string {
	out := make([]string, len(d.Variants))
	for i := range d.Variants {
		out[i] = d.Variants[i].Name
	}
	return out
}
