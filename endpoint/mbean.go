package endpoint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jonwraymond/healthops/auth"
)

// Management adapter errors.
var (
	ErrDuplicateBean    = errors.New("endpoint: bean already registered")
	ErrBeanNotFound     = errors.New("endpoint: bean not found")
	ErrUnknownAttribute = errors.New("endpoint: unknown attribute")
)

// ObjectName identifies a management bean, following the
// <domain>:type=Endpoint,name=<Name>[,context=<id>][,identity=<hex>]
// pattern.
type ObjectName struct {
	// Domain is the management domain, e.g. "org.healthops".
	Domain string

	// Name is the capitalized endpoint id, e.g. "Health".
	Name string

	// Context disambiguates multiple application contexts. Optional.
	Context string

	// Identity disambiguates multiple instances of the same context.
	// Optional, conventionally a hex string.
	Identity string
}

// NewObjectName builds an ObjectName for an endpoint id, capitalizing the
// first letter of the id per the naming convention.
func NewObjectName(domain, endpointID string) ObjectName {
	return ObjectName{Domain: domain, Name: capitalize(endpointID)}
}

// String formats the object name.
func (o ObjectName) String() string {
	var b strings.Builder
	b.WriteString(o.Domain)
	b.WriteString(":type=Endpoint,name=")
	b.WriteString(o.Name)
	if o.Context != "" {
		b.WriteString(",context=")
		b.WriteString(o.Context)
	}
	if o.Identity != "" {
		b.WriteString(",identity=")
		b.WriteString(o.Identity)
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Bean exposes one endpoint as typed attributes for in-process management
// access, the JMX-style counterpart of the HTTP adapter.
type Bean interface {
	// ObjectName returns the bean's registration name.
	ObjectName() ObjectName

	// AttributeNames lists the available attributes.
	AttributeNames() []string

	// Attribute reads one attribute, filtered by the caller's access
	// level. Returns ErrUnknownAttribute for unknown names and
	// auth.ErrForbidden when the level does not permit the attribute.
	Attribute(ctx context.Context, name string, level auth.AccessLevel) (any, error)
}

// HealthBean exposes the health endpoint as a Bean with a Status attribute
// (RESTRICTED and above) and a Details attribute (FULL only).
type HealthBean struct {
	name      ObjectName
	evaluator Evaluator
}

// NewHealthBean creates the health management bean.
func NewHealthBean(name ObjectName, evaluator Evaluator) *HealthBean {
	return &HealthBean{name: name, evaluator: evaluator}
}

// ObjectName returns the bean's registration name.
func (b *HealthBean) ObjectName() ObjectName {
	return b.name
}

// AttributeNames lists the health attributes.
func (b *HealthBean) AttributeNames() []string {
	return []string{"Status", "Details"}
}

// Attribute reads a health attribute.
func (b *HealthBean) Attribute(ctx context.Context, name string, level auth.AccessLevel) (any, error) {
	if level == auth.AccessNone {
		return nil, auth.ErrForbidden
	}
	switch name {
	case "Status":
		return string(b.evaluator.Health(ctx).Status()), nil
	case "Details":
		if level < auth.AccessFull {
			return nil, auth.ErrForbidden
		}
		result := b.evaluator.Health(ctx)
		details := make(map[string]map[string]any, len(result.ComponentNames()))
		for _, component := range result.ComponentNames() {
			h, _ := result.Component(component)
			entry := map[string]any{"status": string(h.Status())}
			if d := h.Details(); d != nil {
				entry["details"] = d
			}
			details[component] = entry
		}
		return details, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAttribute, name)
	}
}

// ManagementServer is the in-process registry of management beans, keyed
// by object name.
type ManagementServer struct {
	mu    sync.RWMutex
	beans map[string]Bean
}

// NewManagementServer creates an empty management server.
func NewManagementServer() *ManagementServer {
	return &ManagementServer{beans: make(map[string]Bean)}
}

// Register adds a bean. Fails with ErrDuplicateBean when the object name
// is taken.
func (s *ManagementServer) Register(bean Bean) error {
	key := bean.ObjectName().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.beans[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateBean, key)
	}
	s.beans[key] = bean
	return nil
}

// Unregister removes a bean by object name, returning it or nil.
func (s *ManagementServer) Unregister(name ObjectName) Bean {
	key := name.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	bean := s.beans[key]
	delete(s.beans, key)
	return bean
}

// Get returns the bean registered under the object name.
func (s *ManagementServer) Get(name ObjectName) (Bean, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bean, ok := s.beans[name.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBeanNotFound, name)
	}
	return bean, nil
}

// Names lists the registered object names, sorted.
func (s *ManagementServer) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.beans))
	for key := range s.beans {
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}
