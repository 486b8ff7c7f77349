// Package aliasbook persists the short-name → identity-name mapping
// (aliases) and the group-name → ordered member list mapping (groups) as
// key-sorted textual tables under a keystore.Store's base directory.
package aliasbook

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/cvsouth/enseal/keystore"
)

// Aliases is an in-memory, key-sorted short-name → identity-name table.
type Aliases struct {
	path    string
	entries map[string]keystore.IdentityName
}

// LoadAliases reads the alias table from disk. A missing file is treated
// as an empty table.
func LoadAliases(s *keystore.Store) (*Aliases, error) {
	a := &Aliases{path: s.AliasesPath(), entries: map[string]keystore.IdentityName{}}
	if err := loadTable(a.path, func(key, val string) error {
		name, err := keystore.ValidateIdentityName(val)
		if err != nil {
			return fmt.Errorf("alias %q: %w", key, err)
		}
		a.entries[key] = name
		return nil
	}); err != nil {
		return nil, err
	}
	return a, nil
}

// Resolve returns the identity the short name maps to, if any.
func (a *Aliases) Resolve(shortName string) (keystore.IdentityName, bool) {
	name, ok := a.entries[shortName]
	return name, ok
}

// Set adds or overwrites an alias and persists the table.
func (a *Aliases) Set(shortName string, target keystore.IdentityName) error {
	if err := keystore.ValidateShortName(shortName); err != nil {
		return err
	}
	a.entries[shortName] = target
	return a.save()
}

// Remove deletes an alias if present and persists the table.
func (a *Aliases) Remove(shortName string) error {
	delete(a.entries, shortName)
	return a.save()
}

// Names returns the alias short-names in sorted order.
func (a *Aliases) Names() []string {
	names := make([]string, 0, len(a.entries))
	for k := range a.entries {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (a *Aliases) save() error {
	names := a.Names()
	lines := make([]string, 0, len(names))
	for _, k := range names {
		lines = append(lines, k+"="+a.entries[k].String())
	}
	return writeTable(a.path, lines)
}

// Groups is an in-memory, key-sorted group-name → ordered member list
// table. Duplicate members are suppressed on Add.
type Groups struct {
	path    string
	members map[string][]keystore.IdentityName
}

// LoadGroups reads the group table from disk. A missing file is treated
// as an empty table. Each line is "group=member1,member2,...".
func LoadGroups(s *keystore.Store) (*Groups, error) {
	g := &Groups{path: s.GroupsPath(), members: map[string][]keystore.IdentityName{}}
	if err := loadTable(g.path, func(key, val string) error {
		var names []keystore.IdentityName
		for _, part := range strings.Split(val, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name, err := keystore.ValidateIdentityName(part)
			if err != nil {
				return fmt.Errorf("group %q member: %w", key, err)
			}
			names = append(names, name)
		}
		g.members[key] = names
		return nil
	}); err != nil {
		return nil, err
	}
	return g, nil
}

// Members returns the ordered member list of a group, or nil if the group
// does not exist.
func (g *Groups) Members(group string) ([]keystore.IdentityName, bool) {
	m, ok := g.members[group]
	return m, ok
}

// Add appends a member to a group, creating the group if necessary, and
// suppresses the addition if the member is already present.
func (g *Groups) Add(group string, member keystore.IdentityName) error {
	if err := keystore.ValidateShortName(group); err != nil {
		return err
	}
	for _, existing := range g.members[group] {
		if existing == member {
			return g.save() // no-op write keeps on-disk state consistent with in-memory
		}
	}
	g.members[group] = append(g.members[group], member)
	return g.save()
}

// Remove deletes a single member from a group, if present.
func (g *Groups) Remove(group string, member keystore.IdentityName) error {
	members := g.members[group]
	for i, existing := range members {
		if existing == member {
			g.members[group] = append(members[:i], members[i+1:]...)
			break
		}
	}
	return g.save()
}

// DeleteGroup removes a group entirely.
func (g *Groups) DeleteGroup(group string) error {
	delete(g.members, group)
	return g.save()
}

// Names returns the group names in sorted order.
func (g *Groups) Names() []string {
	names := make([]string, 0, len(g.members))
	for k := range g.members {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (g *Groups) save() error {
	names := g.Names()
	lines := make([]string, 0, len(names))
	for _, k := range names {
		parts := make([]string, 0, len(g.members[k]))
		for _, m := range g.members[k] {
			parts = append(parts, m.String())
		}
		lines = append(lines, k+"="+strings.Join(parts, ","))
	}
	return writeTable(g.path, lines)
}

// loadTable reads a "key=value" table, calling fn for each line in file
// order. A missing file yields no calls and no error.
func loadTable(path string, fn func(key, val string) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			return fmt.Errorf("malformed line in %s: %q", path, line)
		}
		if err := fn(line[:idx], line[idx+1:]); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// writeTable writes a key-sorted "key=value" table to path, 0600.
func writeTable(path string, lines []string) error {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
