package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tbourn/go-printshop-assistant/internal/domain"
	"github.com/tbourn/go-printshop-assistant/internal/slug"
)

// Catalog is the read-only view of the print catalog the engine needs.
// Lookups by name report a miss with found == false rather than an error.
type Catalog interface {
	ActiveCategories(ctx context.Context) ([]domain.Category, error)
	CategoryByName(ctx context.Context, name string) (cat domain.Category, found bool, err error)
	ActiveSubCategories(ctx context.Context, categoryID uint) ([]domain.SubCategory, error)
	SubCategoryByName(ctx context.Context, categoryID uint, name string) (sub domain.SubCategory, found bool, err error)
	ProductsIn(ctx context.Context, categoryID, subCategoryID uint) ([]domain.Product, error)
	ProductAttributeLinks(ctx context.Context, productIDs []uint) ([]domain.ProductAttribute, error)
	AttributesByIDs(ctx context.Context, ids []uint) ([]domain.Attribute, error)
	LinksMatchingAny(ctx context.Context, pairs []domain.AttributeValue) ([]domain.ProductAttribute, error)
	ProductsByIDsIn(ctx context.Context, ids []uint, categoryID, subCategoryID uint, limit int) ([]domain.Product, error)
}

// TicketWriter persists support tickets raised during a turn.
type TicketWriter interface {
	CreateTicket(ctx context.Context, t *domain.SupportTicket) error
}

// Responder answers free-form text the dialogue cannot handle itself.
type Responder interface {
	Respond(ctx context.Context, text string) (string, error)
}

// Env carries the collaborators of a single turn. Callers bind Catalog and
// Tickets to the turn's transaction.
type Env struct {
	Catalog Catalog
	Tickets TicketWriter
}

// FallbackResult records whether and how the free-form responder was used.
type FallbackResult string

const (
	FallbackUnused FallbackResult = ""
	FallbackOK     FallbackResult = "ok"
	FallbackFailed FallbackResult = "error"
)

// Outcome is the result of one turn.
type Outcome struct {
	State    State
	Reply    Reply
	Ticket   *domain.SupportTicket // set when a grievance was filed
	Fallback FallbackResult
	// FallbackErr is the recovered responder failure, for logging.
	FallbackErr error
}

// ErrEmptyReply reports a responder that produced no text. Responders may
// return it themselves; the engine also uses it for blank answers.
var ErrEmptyReply = errors.New("fallback responder returned an empty answer")

// ErrNoResponder is the recovered failure when no responder is configured.
var ErrNoResponder = errors.New("no fallback responder configured")

const (
	defaultFallbackTimeout = 8 * time.Second
	defaultMaxSuggestions  = 3
)

// Engine runs dialogue turns. It is stateless between calls and safe for
// concurrent use; serializing turns of one session is the caller's job.
type Engine struct {
	responder      Responder
	timeout        time.Duration
	maxSuggestions int
	newID          func() string
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithFallbackTimeout bounds every responder call.
func WithFallbackTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMaxSuggestions caps the number of suggested products.
func WithMaxSuggestions(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSuggestions = n
		}
	}
}

// WithIDGenerator replaces the ticket id generator (tests).
func WithIDGenerator(f func() string) EngineOption {
	return func(e *Engine) {
		if f != nil {
			e.newID = f
		}
	}
}

// NewEngine builds an Engine. A nil responder makes every free-form input
// end in the apology reply.
func NewEngine(r Responder, opts ...EngineOption) *Engine {
	e := &Engine{
		responder:      r,
		timeout:        defaultFallbackTimeout,
		maxSuggestions: defaultMaxSuggestions,
		newID:          uuid.NewString,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Process consumes one input in state st. Catalog or ticket errors are
// returned as-is and the caller must keep the previous state; responder
// failures are recovered into ApologyMessage.
func (e *Engine) Process(ctx context.Context, env Env, st State, input string) (Outcome, error) {
	input = strings.TrimSpace(input)
	if err := st.Validate(); err != nil {
		return reset(menuReply(MenuMessage)), nil
	}

	switch st.Step {
	case StepInit:
		return e.fromInit(ctx, env, input)
	case StepAwaitingCategory:
		return e.chooseCategory(ctx, env, input)
	case StepAwaitingSubCategory:
		return e.chooseSubCategory(ctx, env, st.Clone(), input)
	case StepAwaitingAttributeAnswer:
		return e.answerAttribute(st.Clone(), input), nil
	case StepFinalSuggestion:
		return e.finalSuggestion(ctx, env, st.Clone(), input)
	case StepAwaitingOrderID:
		return reset(orderStatusReply(input)), nil
	}
	return reset(menuReply(MenuMessage)), nil
}

func reset(r Reply) Outcome { return Outcome{State: Initial(), Reply: r} }

func (e *Engine) fromInit(ctx context.Context, env Env, input string) (Outcome, error) {
	if g, ok := parseGrievance(input); ok {
		return e.fileGrievance(ctx, env, g)
	}

	switch input {
	case CommandLookProducts:
		cats, err := env.Catalog.ActiveCategories(ctx)
		if err != nil {
			return Outcome{}, fmt.Errorf("list categories: %w", err)
		}
		if len(cats) == 0 {
			return reset(menuReply(EmptyCatalogMessage)), nil
		}
		names := make([]string, 0, len(cats))
		for _, c := range cats {
			names = append(names, c.Name)
		}
		return Outcome{State: awaitingCategory(), Reply: categoryPrompt(names)}, nil
	case CommandCheckOrder:
		return Outcome{State: awaitingOrderID(), Reply: Reply{Message: OrderIDPrompt}}, nil
	}

	return e.fallback(ctx, input)
}

func (e *Engine) fileGrievance(ctx context.Context, env Env, g Grievance) (Outcome, error) {
	if bad := g.Validate(); len(bad) > 0 {
		return reset(invalidGrievanceReply(bad)), nil
	}
	t := g.Ticket(e.newID())
	if err := env.Tickets.CreateTicket(ctx, t); err != nil {
		return Outcome{}, fmt.Errorf("create ticket: %w", err)
	}
	out := reset(ticketReply(g.Name, t.ID))
	out.Ticket = t
	return out, nil
}

func (e *Engine) fallback(ctx context.Context, input string) (Outcome, error) {
	ctx, span := otel.Tracer("dialogue/Engine").Start(ctx, "Engine.fallback")
	defer span.End()

	answer, err := e.respond(ctx, input)
	if err != nil {
		// The caller gave up; there is nobody to apologize to. Only the
		// engine's own timeout is recovered.
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "fallback failed")
		out := reset(menuReply(ApologyMessage))
		out.Fallback = FallbackFailed
		out.FallbackErr = err
		return out, nil
	}
	span.SetAttributes(attribute.Int("fallback.answer_len", len(answer)))
	out := reset(menuReply(answer))
	out.Fallback = FallbackOK
	return out, nil
}

// respond calls the responder under the engine timeout. The call runs in
// its own goroutine so a responder that ignores ctx cannot stall the turn.
func (e *Engine) respond(ctx context.Context, input string) (string, error) {
	if e.responder == nil {
		return "", ErrNoResponder
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		txt, err := e.responder.Respond(ctx, input)
		ch <- result{txt, err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("fallback: %w", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return "", fmt.Errorf("fallback: %w", r.err)
		}
		txt := strings.TrimSpace(r.text)
		if txt == "" {
			return "", ErrEmptyReply
		}
		return txt, nil
	}
}

func (e *Engine) chooseCategory(ctx context.Context, env Env, input string) (Outcome, error) {
	cat, found, err := env.Catalog.CategoryByName(ctx, input)
	if err != nil {
		return Outcome{}, fmt.Errorf("find category: %w", err)
	}
	if !found {
		return reset(notFoundReply()), nil
	}
	subs, err := env.Catalog.ActiveSubCategories(ctx, cat.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("list sub-categories: %w", err)
	}
	if len(subs) == 0 {
		return reset(menuReply(fmt.Sprintf("Sorry, there are no %s products available right now.", cat.Name))), nil
	}
	names := make([]string, 0, len(subs))
	for _, s := range subs {
		names = append(names, s.Name)
	}
	return Outcome{State: awaitingSubCategory(cat.Name), Reply: subCategoryPrompt(cat.Name, names)}, nil
}

// resolvePair re-reads the category and sub-category rows by the names kept
// in the selection. found is false if either no longer exists.
func resolvePair(ctx context.Context, c Catalog, category, subCategory string) (domain.Category, domain.SubCategory, bool, error) {
	cat, found, err := c.CategoryByName(ctx, category)
	if err != nil || !found {
		return cat, domain.SubCategory{}, false, err
	}
	sub, found, err := c.SubCategoryByName(ctx, cat.ID, subCategory)
	return cat, sub, found, err
}

func (e *Engine) chooseSubCategory(ctx context.Context, env Env, st State, input string) (Outcome, error) {
	cat, sub, found, err := resolvePair(ctx, env.Catalog, st.Selection.Category, input)
	if err != nil {
		return Outcome{}, fmt.Errorf("find sub-category: %w", err)
	}
	if !found {
		return reset(notFoundReply()), nil
	}

	attrs, err := pendingAttributes(ctx, env.Catalog, cat.ID, sub.ID)
	if err != nil {
		return Outcome{}, err
	}
	next := askingAttributes(cat.Name, sub.Name, attrs)
	if len(attrs) == 0 {
		return Outcome{State: next, Reply: showProductsPrompt(sub.Name)}, nil
	}
	return Outcome{State: next, Reply: attributePrompt(attrs[0])}, nil
}

// pendingAttributes collects the distinct attributes linked to the pair's
// products, ordered by attribute id.
func pendingAttributes(ctx context.Context, c Catalog, categoryID, subCategoryID uint) ([]PendingAttribute, error) {
	products, err := c.ProductsIn(ctx, categoryID, subCategoryID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		return nil, nil
	}
	ids := make([]uint, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	links, err := c.ProductAttributeLinks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list product attributes: %w", err)
	}
	seen := make(map[uint]struct{}, len(links))
	attrIDs := make([]uint, 0, len(links))
	for _, l := range links {
		if _, dup := seen[l.AttributeID]; dup {
			continue
		}
		seen[l.AttributeID] = struct{}{}
		attrIDs = append(attrIDs, l.AttributeID)
	}
	attrs, err := c.AttributesByIDs(ctx, attrIDs)
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	if len(attrs) == 0 {
		return nil, nil
	}
	out := make([]PendingAttribute, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, PendingAttribute{ID: a.ID, Name: a.Name, Options: a.OptionList()})
	}
	return out, nil
}

// matchOption returns the canonical spelling of input among options. Any
// non-empty input is accepted when there are no options.
func matchOption(a PendingAttribute, input string) (string, bool) {
	if input == "" {
		return "", false
	}
	if len(a.Options) == 0 {
		return input, true
	}
	for _, o := range a.Options {
		if strings.EqualFold(o, input) {
			return o, true
		}
	}
	return "", false
}

func (e *Engine) answerAttribute(st State, input string) Outcome {
	sel := st.Selection
	cur, _ := sel.Current()
	value, ok := matchOption(cur, input)
	if !ok {
		return Outcome{State: st, Reply: invalidAnswerReply(cur, input)}
	}
	sel.Selected[cur.ID] = value
	sel.Cursor++

	if next, more := sel.Current(); more {
		return Outcome{State: st, Reply: attributePrompt(next)}
	}
	st.Step = StepFinalSuggestion
	last, _ := sel.Last()
	return Outcome{State: st, Reply: confirmPrompt(last, sel.Selected[last.ID])}
}

func (e *Engine) finalSuggestion(ctx context.Context, env Env, st State, input string) (Outcome, error) {
	sel := st.Selection
	if last, ok := sel.Last(); ok {
		value, valid := matchOption(last, input)
		if !valid {
			return Outcome{State: st, Reply: invalidAnswerReply(last, input)}, nil
		}
		sel.Selected[last.ID] = value
	}

	cat, sub, found, err := resolvePair(ctx, env.Catalog, sel.Category, sel.SubCategory)
	if err != nil {
		return Outcome{}, fmt.Errorf("resolve selection: %w", err)
	}
	if !found {
		return reset(notFoundReply()), nil
	}

	products, err := e.suggest(ctx, env.Catalog, cat.ID, sub.ID, sel)
	if err != nil {
		return Outcome{}, err
	}
	if len(products) == 0 {
		return reset(menuReply(NoMatchMessage)), nil
	}
	r := menuReply(SuggestionMessage)
	r.Products = make([]ProductSuggestion, 0, len(products))
	for _, p := range products {
		r.Products = append(r.Products, ProductSuggestion{Name: p.Name, Link: slug.Make(p.Name)})
	}
	return reset(r), nil
}

// suggest returns up to maxSuggestions products of the pair that offer any of
// the selected attribute values. With nothing selected every product of the
// pair qualifies.
func (e *Engine) suggest(ctx context.Context, c Catalog, categoryID, subCategoryID uint, sel *Selection) ([]domain.Product, error) {
	var ids []uint
	if len(sel.Selected) == 0 {
		products, err := c.ProductsIn(ctx, categoryID, subCategoryID)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		for _, p := range products {
			ids = append(ids, p.ID)
		}
	} else {
		pairs := make([]domain.AttributeValue, 0, len(sel.Selected))
		for _, a := range sel.Attributes {
			if v, ok := sel.Selected[a.ID]; ok {
				pairs = append(pairs, domain.AttributeValue{AttributeID: a.ID, Value: v})
			}
		}
		links, err := c.LinksMatchingAny(ctx, pairs)
		if err != nil {
			return nil, fmt.Errorf("match attributes: %w", err)
		}
		seen := make(map[uint]struct{}, len(links))
		for _, l := range links {
			if _, dup := seen[l.ProductID]; !dup {
				seen[l.ProductID] = struct{}{}
				ids = append(ids, l.ProductID)
			}
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	products, err := c.ProductsByIDsIn(ctx, ids, categoryID, subCategoryID, e.maxSuggestions)
	if err != nil {
		return nil, fmt.Errorf("list suggested products: %w", err)
	}
	if len(products) > e.maxSuggestions {
		products = products[:e.maxSuggestions]
	}
	return products, nil
}
