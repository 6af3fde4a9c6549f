package vport

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/ovs-container-lab/vport-intents/pkg/flowkey"
	"github.com/ovs-container-lab/vport-intents/pkg/intent"
)

// Journal persists the intent ids recorded by a mapping so that intents
// orphaned by a crash can be withdrawn later
type Journal interface {
	Record(owner, key string, ids []uuid.UUID) error
	Forget(owner, key string) error
}

// Option configures a Mapping
type Option func(*Mapping)

// WithJournal makes the mapping report its intent records under owner
func WithJournal(owner string, journal Journal) Option {
	return func(m *Mapping) {
		m.owner = owner
		m.journal = journal
	}
}

// WithLogger sets the logger used by the mapping
func WithLogger(logger *logrus.Entry) Option {
	return func(m *Mapping) {
		m.logger = logger
	}
}

// Mapping maps canonical flow keys to virtual ports and keeps track of the
// intents issued for every key.
//
// Mapping is not safe for concurrent use; callers serialize Set and Remove.
type Mapping struct {
	service intent.Service
	policy  Policy
	ports   map[string]*Port
	intents map[string][]uuid.UUID
	orphans map[string][]uuid.UUID // journaled only, withdrawn on recovery
	owner   string
	journal Journal
	logger  *logrus.Entry
}

// NewMapping creates an empty mapping that issues intents through service
// according to policy
func NewMapping(service intent.Service, policy Policy, opts ...Option) *Mapping {
	if policy == nil {
		policy = NoRedirect{}
	}

	logger := logrus.New()
	logger.SetLevel(logrus.GetLevel())

	m := &Mapping{
		service: service,
		policy:  policy,
		ports:   make(map[string]*Port),
		intents: make(map[string][]uuid.UUID),
		orphans: make(map[string][]uuid.UUID),
		logger:  logrus.NewEntry(logger),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.owner != "" {
		m.logger = m.logger.WithField("owner", m.owner)
	}
	return m
}

// Get returns the port stored under key
func (m *Mapping) Get(key string) (*Port, bool) {
	port, ok := m.ports[key]
	return port, ok
}

// Set assigns port to key. A nil port removes the key.
//
// With a redirecting policy the requested key is ignored and the port is
// stored under the redirection key once every intent has been acknowledged.
// Intent failures are not rolled back: intents acknowledged before the
// failure stay installed and recorded, the remaining ones are not attempted
// and the port is not stored.
func (m *Mapping) Set(ctx context.Context, key string, port *Port) error {
	if port == nil {
		return m.Remove(ctx, key)
	}
	if err := port.Validate(); err != nil {
		return err
	}

	redirect, ok := m.policy.Redirect()
	if !ok {
		if _, err := flowkey.Decode(key); err != nil {
			return err
		}
		if len(m.intents[key]) > 0 {
			if err := m.Remove(ctx, key); err != nil {
				return err
			}
		}
		m.ports[key] = port
		m.logger.Debugf("Mapped %q to %s", key, port)
		return nil
	}

	effective := flowkey.Encode(redirect.Match)
	if effective != key {
		m.logger.Debugf("Redirecting %q to %q", key, effective)
	}

	if err := m.Remove(ctx, effective); err != nil {
		return fmt.Errorf("failed to replace %q: %w", effective, err)
	}

	for _, src := range redirect.Sources {
		in := intent.Intent{
			Version: intent.Version,
			TTPDPID: port.DPID(),
			TTPPort: port.OVSPortID(),
			STPDPID: src.DPID,
			STPPort: src.PortID,
			Match:   redirect.Match,
		}

		id, err := m.service.Submit(ctx, in)
		if err != nil {
			m.logger.WithError(err).Errorf("Failed to submit intent %s", in)
			return fmt.Errorf("failed to map %q: %w", effective, err)
		}

		m.intents[effective] = append(m.intents[effective], id)
		m.record(effective)
		m.logger.Infof("Intent %s issued for %q (%s:%d)", id, effective, src.DPID, src.PortID)
	}

	m.ports[effective] = port
	m.logger.Debugf("Mapped %q to %s with %d intents", effective, port, len(redirect.Sources))
	return nil
}

// Remove withdraws every intent recorded for key and deletes the key.
// Removing an absent key is a no-op. Records are dropped even when some
// withdrawals fail; the failures are returned together and the ids that
// could not be withdrawn stay in the journal.
func (m *Mapping) Remove(ctx context.Context, key string) error {
	var result *multierror.Error

	if ids, ok := m.intents[key]; ok {
		for _, id := range ids {
			if err := m.service.Withdraw(ctx, id); err != nil {
				m.logger.WithError(err).Errorf("Failed to withdraw intent %s for %q", id, key)
				result = multierror.Append(result, err)
				m.orphans[key] = append(m.orphans[key], id)
				continue
			}
			m.logger.Infof("Intent %s withdrawn for %q", id, key)
		}
		delete(m.intents, key)

		if len(m.orphans[key]) > 0 {
			m.record(key)
		} else {
			m.forget(key)
		}
	}

	delete(m.ports, key)
	return result.ErrorOrNil()
}

// Clear removes every key
func (m *Mapping) Clear(ctx context.Context) error {
	var result *multierror.Error
	keys := lo.Uniq(append(lo.Keys(m.ports), lo.Keys(m.intents)...))
	sort.Strings(keys)
	for _, key := range keys {
		if err := m.Remove(ctx, key); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Keys returns the mapped keys in sorted order
func (m *Mapping) Keys() []string {
	keys := lo.Keys(m.ports)
	sort.Strings(keys)
	return keys
}

// Intents returns the intent ids recorded for key, in issue order
func (m *Mapping) Intents(key string) []uuid.UUID {
	return append([]uuid.UUID(nil), m.intents[key]...)
}

// Len returns the number of mapped keys
func (m *Mapping) Len() int {
	return len(m.ports)
}

func (m *Mapping) record(key string) {
	if m.journal == nil {
		return
	}
	ids := append(append([]uuid.UUID(nil), m.orphans[key]...), m.intents[key]...)
	if err := m.journal.Record(m.owner, key, ids); err != nil {
		m.logger.WithError(err).Warnf("Failed to journal intents for %q", key)
	}
}

func (m *Mapping) forget(key string) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Forget(m.owner, key); err != nil {
		m.logger.WithError(err).Warnf("Failed to drop journaled intents for %q", key)
	}
}
