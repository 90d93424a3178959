// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package provider

import (
	"context"
	"errors"
	"fmt"
	"github.com/diffeo/go-wink/mediatype"
	"github.com/sirupsen/logrus"
	"io"
	"math"
	"net/http"
	"reflect"
	"sort"
	"sync"
)

// ErrNoReader is returned from Registry.Read() if no reader can
// produce the requested type from the content's media type.
type ErrNoReader struct {
	Type      reflect.Type
	MediaType mediatype.MediaType
}

func (e ErrNoReader) Error() string {
	return fmt.Sprintf("no reader for %v from %v", typeName(e.Type), e.MediaType)
}

// HTTPStatus returns a fixed 415 Unsupported Media Type error code.
func (e ErrNoReader) HTTPStatus() int {
	return http.StatusUnsupportedMediaType
}

// ErrNoWriter is returned from Registry.Write() if no writer can
// produce the requested media type from an object.
type ErrNoWriter struct {
	Type      reflect.Type
	MediaType mediatype.MediaType
}

func (e ErrNoWriter) Error() string {
	return fmt.Sprintf("no writer for %v to %v", typeName(e.Type), e.MediaType)
}

// HTTPStatus returns a fixed 500 Internal Server Error code.
func (e ErrNoWriter) HTTPStatus() int {
	return http.StatusInternalServerError
}

// rootDistance is the distance of an exception mapper declared for
// the plain error interface, which is further than anything else
// that matches.
const rootDistance = math.MaxInt32

// entry is one registered provider with its declarations.
type entry struct {
	factory     ObjectFactory
	kinds       Kind
	produces    []mediatype.MediaType
	consumes    []mediatype.MediaType
	entityType  reflect.Type
	contextType reflect.Type
	errorType   reflect.Type
	priority    float64
	seq         uint64
}

func newEntry(factory ObjectFactory, priority float64) (*entry, error) {
	var err error
	proto := factory.Prototype()
	e := &entry{
		factory:  factory,
		kinds:    KindsOf(reflect.TypeOf(proto)),
		priority: priority,
	}
	if p, ok := proto.(Producer); ok {
		e.produces, err = parseDeclared(p.Produces())
		if err != nil {
			return nil, err
		}
	}
	if c, ok := proto.(Consumer); ok {
		e.consumes, err = parseDeclared(c.Consumes())
		if err != nil {
			return nil, err
		}
	}
	if et, ok := proto.(EntityTyped); ok {
		e.entityType = et.EntityType()
	}
	if ct, ok := proto.(ContextTyped); ok {
		e.contextType = ct.ContextType()
	}
	if et, ok := proto.(ErrorTyped); ok {
		e.errorType = et.ErrorType()
	}
	return e, nil
}

func parseDeclared(ss []string) ([]mediatype.MediaType, error) {
	mts, err := mediatype.ParseList(ss)
	if err != nil {
		return nil, err
	}
	for i, mt := range mts {
		mts[i] = mt.WithoutParams()
	}
	return mts, nil
}

// mediaTypes returns the declared media types relevant to a
// capability, with an absent declaration meaning */*.
func (e *entry) mediaTypes(kind Kind) []mediatype.MediaType {
	var mts []mediatype.MediaType
	if kind == KindReader {
		mts = e.consumes
	} else {
		mts = e.produces
	}
	if len(mts) == 0 {
		return []mediatype.MediaType{mediatype.WildcardType}
	}
	return mts
}

// score returns the best specificity of any declared media type
// against the requested one.
func (e *entry) score(kind Kind, mt mediatype.MediaType) int {
	best := mediatype.Incompatible
	for _, declared := range e.mediaTypes(kind) {
		if s := mediatype.MatchSpecificity(mt, declared); s > best {
			best = s
		}
	}
	return best
}

func (e *entry) declaredType(kind Kind) reflect.Type {
	if kind == KindContextResolver {
		return e.contextType
	}
	return e.entityType
}

// before is the tie-breaking order between two entries of equal
// specificity.
func (e *entry) before(other *entry) bool {
	if e.priority != other.priority {
		return e.priority < other.priority
	}
	return e.seq < other.seq
}

func typeMatches(requested, declared reflect.Type) bool {
	if declared == nil {
		return true
	}
	if requested == nil {
		return false
	}
	return requested.AssignableTo(declared)
}

// errorDistance returns how far err is from an exception mapper's
// declared type, following the errors.Unwrap chain, or -1 if the
// mapper does not apply at all.
func errorDistance(err error, declared reflect.Type) int {
	if declared == nil || declared == errorType {
		return rootDistance
	}
	depth := 0
	for e := err; e != nil; e = errors.Unwrap(e) {
		et := reflect.TypeOf(e)
		if et == declared {
			return 2 * depth
		}
		if declared.Kind() == reflect.Interface && et.Implements(declared) {
			return 2*depth + 1
		}
		depth++
	}
	return -1
}

// Registry holds the set of registered providers.  It is safe for
// concurrent use.
type Registry struct {
	// Logger receives registration and lookup messages.
	Logger logrus.FieldLogger

	validator *Validator
	lock      sync.RWMutex
	entries   []*entry
	nextSeq   uint64
	cache     *lookupCache
	metrics   *registryMetrics
}

// NewRegistry creates an empty provider registry.  Providers are
// checked against v, which may be shared with a resource registry;
// if v is nil a new validator is created.
func NewRegistry(v *Validator) *Registry {
	if v == nil {
		v = NewValidator()
	}
	return &Registry{
		Logger:    logrus.StandardLogger(),
		validator: v,
		cache:     newLookupCache(defaultCacheSize),
		metrics:   newRegistryMetrics(),
	}
}

// Validator returns the validator this registry checks providers
// against.
func (r *Registry) Validator() *Validator {
	return r.validator
}

// Add registers a provider with a given priority.  v may be the
// provider itself or an ObjectFactory that creates it.  Returns false
// if v is not a provider, or if its type was already registered; in
// that case the registry is unchanged.
func (r *Registry) Add(v interface{}, priority float64) bool {
	factory, ok := v.(ObjectFactory)
	if !ok {
		factory = Singleton(v)
	}
	t := factory.InstanceType()
	logger := r.Logger.WithFields(logrus.Fields{
		"type":     typeName(t),
		"priority": priority,
	})
	e, err := newEntry(factory, priority)
	if err != nil {
		logger.WithError(err).Warn("invalid media type declaration")
		return false
	}
	if !r.validator.IsValidProvider(t) {
		return false
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	e.seq = r.nextSeq
	r.nextSeq++
	r.entries = append(r.entries, e)
	r.cache.Purge()
	logger.WithField("kinds", e.kinds.String()).Debug("added provider")
	return true
}

// AddDefault registers a provider at DefaultPriority.
func (r *Registry) AddDefault(v interface{}) bool {
	return r.Add(v, DefaultPriority)
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.entries)
}

// snapshot returns the current entry list.  Entries are never
// modified after they are added, so the result can be used without
// holding the lock.
func (r *Registry) snapshot() []*entry {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.entries
}

// candidates returns the entries of one capability that could serve
// a type and media type, most preferred first.
func (r *Registry) candidates(kind Kind, t reflect.Type, mt mediatype.MediaType) []*entry {
	key := lookupKey{kind: kind, t: t, mt: mt.WithoutParams().String()}

	r.lock.RLock()
	defer r.lock.RUnlock()
	entries, hit := r.cache.Get(key, func(key lookupKey) []*entry {
		return r.rank(kind, t, mt)
	})
	r.metrics.lookup(kind, hit)
	return entries
}

// rank does the real work of candidates().  It runs under the read
// lock.
func (r *Registry) rank(kind Kind, t reflect.Type, mt mediatype.MediaType) []*entry {
	type scored struct {
		e     *entry
		score int
	}
	var matches []scored
	for _, e := range r.entries {
		if e.kinds&kind == 0 || !typeMatches(t, e.declaredType(kind)) {
			continue
		}
		if s := e.score(kind, mt); s >= 0 {
			matches = append(matches, scored{e, s})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].e.before(matches[j].e)
	})
	result := make([]*entry, len(matches))
	for i, m := range matches {
		result[i] = m.e
	}
	return result
}

func (r *Registry) instance(ctx context.Context, e *entry) (interface{}, bool) {
	obj, err := e.factory.Instance(ctx)
	if err != nil {
		r.Logger.WithError(err).WithField("type", typeName(e.factory.InstanceType())).Warn("could not create provider")
		return nil, false
	}
	return obj, true
}

// FindReader returns the reader that should read an object of type t
// from content of media type mt.
func (r *Registry) FindReader(ctx context.Context, t reflect.Type, mt mediatype.MediaType) (Reader, bool) {
	for _, e := range r.candidates(KindReader, t, mt) {
		obj, ok := r.instance(ctx, e)
		if !ok {
			continue
		}
		if reader, ok := obj.(Reader); ok && reader.IsReadable(t, mt) {
			return reader, true
		}
	}
	return nil, false
}

// FindWriter returns the writer that should write an object of type t
// as media type mt.
func (r *Registry) FindWriter(ctx context.Context, t reflect.Type, mt mediatype.MediaType) (Writer, bool) {
	for _, e := range r.candidates(KindWriter, t, mt) {
		obj, ok := r.instance(ctx, e)
		if !ok {
			continue
		}
		if writer, ok := obj.(Writer); ok && writer.IsWriteable(t, mt) {
			return writer, true
		}
	}
	return nil, false
}

type chainResolver []ContextResolver

func (c chainResolver) Context(t reflect.Type) interface{} {
	for _, resolver := range c {
		if v := resolver.Context(t); v != nil {
			return v
		}
	}
	return nil
}

// FindContextResolver returns a resolver for objects of type t, for
// use with media type mt.  If several resolvers match, the result
// tries each in order and returns the first non-nil context.
func (r *Registry) FindContextResolver(ctx context.Context, t reflect.Type, mt mediatype.MediaType) (ContextResolver, bool) {
	var chain chainResolver
	for _, e := range r.candidates(KindContextResolver, t, mt) {
		obj, ok := r.instance(ctx, e)
		if !ok {
			continue
		}
		if resolver, ok := obj.(ContextResolver); ok {
			chain = append(chain, resolver)
		}
	}
	switch len(chain) {
	case 0:
		return nil, false
	case 1:
		return chain[0], true
	}
	return chain, true
}

// ResolveContext finds a context resolver for t and mt and asks it
// for a context object.  Returns nil if there is no resolver or it
// has nothing to offer.
func (r *Registry) ResolveContext(ctx context.Context, t reflect.Type, mt mediatype.MediaType) interface{} {
	resolver, ok := r.FindContextResolver(ctx, t, mt)
	if !ok {
		return nil
	}
	return resolver.Context(t)
}

// FindExceptionMapper returns the exception mapper nearest to err.
// A mapper declared for err's own type is nearest, then one declared
// for an interface it implements, then the same for each error it
// wraps in turn; a mapper with no declared type handles anything.
func (r *Registry) FindExceptionMapper(ctx context.Context, err error) (ExceptionMapper, bool) {
	type scored struct {
		e        *entry
		distance int
	}
	var matches []scored
	for _, e := range r.snapshot() {
		if e.kinds&KindExceptionMapper == 0 {
			continue
		}
		if d := errorDistance(err, e.errorType); d >= 0 {
			matches = append(matches, scored{e, d})
		}
	}
	r.metrics.uncached(KindExceptionMapper)
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].e.before(matches[j].e)
	})
	for _, m := range matches {
		obj, ok := r.instance(ctx, m.e)
		if !ok {
			continue
		}
		if mapper, ok := obj.(ExceptionMapper); ok {
			return mapper, true
		}
	}
	return nil, false
}

// byPreference returns the entries of one capability that can handle
// type t, ordered by priority and then registration order.
func (r *Registry) byPreference(kind Kind, t reflect.Type) []*entry {
	var result []*entry
	for _, e := range r.snapshot() {
		if e.kinds&kind != 0 && typeMatches(t, e.declaredType(kind)) {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].before(result[j])
	})
	return result
}

// WriterMediaTypes lists the media types to which some writer can
// actually write type t, most preferred writer first, each writer's
// types in its own order.
func (r *Registry) WriterMediaTypes(ctx context.Context, t reflect.Type) []mediatype.MediaType {
	var result []mediatype.MediaType
	seen := make(map[string]bool)
	for _, e := range r.byPreference(KindWriter, t) {
		obj, ok := r.instance(ctx, e)
		if !ok {
			continue
		}
		writer, ok := obj.(Writer)
		if !ok {
			continue
		}
		for _, mt := range e.mediaTypes(KindWriter) {
			if !seen[mt.String()] && writer.IsWriteable(t, mt) {
				seen[mt.String()] = true
				result = append(result, mt)
			}
		}
	}
	return result
}

// ReaderMediaTypes lists the media types from which some reader can
// actually produce type t, most preferred reader first.
func (r *Registry) ReaderMediaTypes(ctx context.Context, t reflect.Type) []mediatype.MediaType {
	var result []mediatype.MediaType
	seen := make(map[string]bool)
	for _, e := range r.byPreference(KindReader, t) {
		obj, ok := r.instance(ctx, e)
		if !ok {
			continue
		}
		reader, ok := obj.(Reader)
		if !ok {
			continue
		}
		for _, mt := range e.mediaTypes(KindReader) {
			if !seen[mt.String()] && reader.IsReadable(t, mt) {
				seen[mt.String()] = true
				result = append(result, mt)
			}
		}
	}
	return result
}

// Read finds a reader for t and mt and uses it to read body.  The
// reader sees a context carrying this registry.
func (r *Registry) Read(ctx context.Context, t reflect.Type, mt mediatype.MediaType, header http.Header, body io.Reader) (interface{}, error) {
	reader, ok := r.FindReader(ctx, t, mt)
	if !ok {
		return nil, ErrNoReader{Type: t, MediaType: mt}
	}
	return reader.ReadFrom(NewContext(ctx, r), t, mt, header, body)
}

// Write finds a writer for v and mt and uses it to write v to w.  The
// writer sees a context carrying this registry.
func (r *Registry) Write(ctx context.Context, v interface{}, mt mediatype.MediaType, header http.Header, w io.Writer) error {
	t := reflect.TypeOf(v)
	writer, ok := r.FindWriter(ctx, t, mt)
	if !ok {
		return ErrNoWriter{Type: t, MediaType: mt}
	}
	return writer.WriteTo(NewContext(ctx, r), v, mt, header, w)
}
