// Package target identifies remote bus endpoints: the (service name, object
// path, interface name) triple a call or signal subscription is addressed to.
package target

import (
	"strings"

	"github.com/morezero/comms-client/pkg/wire"
)

const maxNameLen = 255

// Descriptor addresses one remote endpoint on the bus.
type Descriptor struct {
	Service   string // well-known service name, e.g. "org.example.Svc"
	Path      string // object path, e.g. "/org/example/Svc"
	Interface string // interface name, e.g. "org.example.Svc"
}

// FromName derives a full descriptor from a service name by convention: the
// object path is the name with dots turned into slashes, rooted at '/', and
// the interface name equals the service name.
func FromName(name string) Descriptor {
	return Descriptor{
		Service:   name,
		Path:      "/" + strings.ReplaceAll(name, ".", "/"),
		Interface: name,
	}
}

// Validate checks every field of the descriptor against the bus grammar and
// returns the violations found (empty means valid). All fields are checked
// independently so a caller sees every problem at once.
func (d Descriptor) Validate() []string {
	var problems []string
	if !ValidServiceName(d.Service) {
		problems = append(problems, d.Service+": invalid bus service name")
	}
	if !wire.ObjectPath(d.Path).Valid() {
		problems = append(problems, d.Path+": invalid bus object path")
	}
	if !ValidInterfaceName(d.Interface) {
		problems = append(problems, d.Interface+": invalid bus interface name")
	}
	return problems
}

// Key joins the descriptor fields into the stable identity string used to
// key the proxy cache.
func (d Descriptor) Key() string {
	return d.Service + " " + d.Path + " " + d.Interface
}

// ValidServiceName reports whether s is a well-formed service name: at least
// two dot-separated elements, each starting with a letter, '_' or '-', total
// length at most 255 bytes.
func ValidServiceName(s string) bool {
	return validDottedName(s, true)
}

// ValidInterfaceName reports whether s is a well-formed interface name.
// Unlike service names, interface name elements may not contain '-'.
func ValidInterfaceName(s string) bool {
	return validDottedName(s, false)
}

// ValidMemberName reports whether s is a well-formed method or signal name:
// a single element of [A-Za-z_][A-Za-z0-9_]*, at most 255 bytes.
func ValidMemberName(s string) bool {
	if len(s) == 0 || len(s) > maxNameLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !nameByte(s[i], false) || (i == 0 && digit(s[i])) {
			return false
		}
	}
	return true
}

func validDottedName(s string, allowHyphen bool) bool {
	if len(s) == 0 || len(s) > maxNameLen {
		return false
	}
	elems := strings.Split(s, ".")
	if len(elems) < 2 {
		return false
	}
	for _, e := range elems {
		if len(e) == 0 || digit(e[0]) {
			return false
		}
		for i := 0; i < len(e); i++ {
			if !nameByte(e[i], allowHyphen) {
				return false
			}
		}
	}
	return true
}

func nameByte(c byte, allowHyphen bool) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '_' || (allowHyphen && c == '-')
}

func digit(c byte) bool { return c >= '0' && c <= '9' }
