package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/observability"
	"github.com/spec-kit/campus-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

// FilterAll disables a criterion.
const FilterAll = "all"

// FilterUnassigned matches tickets with no department.
const FilterUnassigned = "unassigned"

// TicketCriteria narrows a ticket list. Empty values and "all" match everything.
type TicketCriteria struct {
	Status      string
	IssueType   string
	AssignedTo  string
	Priority    string
	SearchQuery string
}

// SortField names a sortable ticket column.
type SortField string

const (
	SortByID          SortField = "id"
	SortByTitle       SortField = "title"
	SortByStudentName SortField = "student_name"
	SortByIssueType   SortField = "issue_type"
	SortByPriority    SortField = "priority"
	SortByStatus      SortField = "status"
	SortByAssignedTo  SortField = "assigned_to"
	SortByCreatedAt   SortField = "created_at"
	SortByUpdatedAt   SortField = "updated_at"
)

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortSpec is a field plus direction.
type SortSpec struct {
	Field     SortField
	Direction SortDirection
}

// DefaultSort orders newest first.
func DefaultSort() SortSpec {
	return SortSpec{Field: SortByCreatedAt, Direction: SortDesc}
}

// Toggle flips the direction when field is already the sort field, otherwise
// it switches to field descending.
func (s SortSpec) Toggle(field SortField) SortSpec {
	if s.Field != field {
		return SortSpec{Field: field, Direction: SortDesc}
	}
	if s.Direction == SortDesc {
		return SortSpec{Field: field, Direction: SortAsc}
	}
	return SortSpec{Field: field, Direction: SortDesc}
}

// ParseSortSpec validates user supplied sort parameters; blanks mean default.
func ParseSortSpec(field, direction string) (SortSpec, error) {
	spec := DefaultSort()
	if f := strings.ToLower(strings.TrimSpace(field)); f != "" {
		switch SortField(f) {
		case SortByID, SortByTitle, SortByStudentName, SortByIssueType, SortByPriority,
			SortByStatus, SortByAssignedTo, SortByCreatedAt, SortByUpdatedAt:
			spec.Field = SortField(f)
		default:
			return spec, apperrors.NewValidationError("unknown sort field", map[string]any{"sort": field})
		}
	}
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "":
	case string(SortAsc):
		spec.Direction = SortAsc
	case string(SortDesc):
		spec.Direction = SortDesc
	default:
		return spec, apperrors.NewValidationError("order must be asc or desc", map[string]any{"order": direction})
	}
	return spec, nil
}

// Page is one slice of a sorted ticket list.
type Page struct {
	Items      []domain.Ticket
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

func isWildcard(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, FilterAll)
}

// Filter keeps tickets matching every criterion.
func Filter(tickets []domain.Ticket, c TicketCriteria) []domain.Ticket {
	wantStatus := ""
	if !isWildcard(c.Status) {
		if status, ok := domain.ParseTicketStatus(c.Status); ok {
			wantStatus = string(status)
		} else {
			wantStatus = strings.TrimSpace(c.Status)
		}
	}
	query := strings.ToLower(strings.TrimSpace(c.SearchQuery))

	out := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if wantStatus != "" && string(t.Status) != wantStatus {
			continue
		}
		if !isWildcard(c.IssueType) && !strings.EqualFold(string(t.IssueType), strings.TrimSpace(c.IssueType)) {
			continue
		}
		if !isWildcard(c.Priority) && !strings.EqualFold(string(t.Priority), strings.TrimSpace(c.Priority)) {
			continue
		}
		if !isWildcard(c.AssignedTo) {
			want := strings.TrimSpace(c.AssignedTo)
			if strings.EqualFold(want, FilterUnassigned) {
				if t.IsAssigned() {
					continue
				}
			} else if !t.IsAssigned() || !strings.EqualFold(*t.AssignedTo, want) {
				continue
			}
		}
		if query != "" && !matchesSearch(t, query) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchesSearch(t domain.Ticket, lowered string) bool {
	return strings.Contains(strings.ToLower(t.Title), lowered) ||
		strings.Contains(strings.ToLower(t.Description), lowered) ||
		strings.Contains(strings.ToLower(t.StudentName), lowered)
}

// Sort returns a stably sorted copy using root-locale collation.
func Sort(tickets []domain.Ticket, spec SortSpec) []domain.Ticket {
	return sortTickets(tickets, spec, language.Und)
}

func sortTickets(tickets []domain.Ticket, spec SortSpec, locale language.Tag) []domain.Ticket {
	out := make([]domain.Ticket, len(tickets))
	copy(out, tickets)
	if spec.Field == "" {
		spec = DefaultSort()
	}
	desc := spec.Direction == SortDesc

	switch spec.Field {
	case SortByCreatedAt, SortByUpdatedAt:
		useCreated := spec.Field == SortByCreatedAt
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].UpdatedAt, out[j].UpdatedAt
			if useCreated {
				a, b = out[i].CreatedAt, out[j].CreatedAt
			}
			if desc {
				return a.After(b)
			}
			return a.Before(b)
		})
	default:
		col := collate.New(locale)
		key := stringKey(spec.Field)
		sort.SliceStable(out, func(i, j int) bool {
			cmp := col.CompareString(key(&out[i]), key(&out[j]))
			if desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	return out
}

func stringKey(field SortField) func(*domain.Ticket) string {
	switch field {
	case SortByID:
		return func(t *domain.Ticket) string { return t.ID }
	case SortByTitle:
		return func(t *domain.Ticket) string { return t.Title }
	case SortByStudentName:
		return func(t *domain.Ticket) string { return t.StudentName }
	case SortByIssueType:
		return func(t *domain.Ticket) string { return string(t.IssueType) }
	case SortByPriority:
		return func(t *domain.Ticket) string { return string(t.Priority) }
	case SortByStatus:
		return func(t *domain.Ticket) string { return string(t.Status) }
	default:
		return func(t *domain.Ticket) string { return t.Department() }
	}
}

// Paginate returns the 1-indexed page. Pages outside the range are empty.
func Paginate(tickets []domain.Ticket, page, pageSize int) (Page, error) {
	if pageSize <= 0 {
		return Page{}, apperrors.NewValidationError("page size must be positive", map[string]any{"page_size": pageSize})
	}
	total := len(tickets)
	result := Page{
		Items:      []domain.Ticket{},
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	if page < 1 || page > result.TotalPages {
		return result, nil
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	result.Items = append(result.Items, tickets[start:end]...)
	return result, nil
}

// CanView reports whether identity may see ticket.
func CanView(identity domain.Identity, ticket *domain.Ticket) bool {
	switch identity.Role {
	case domain.RoleManager, domain.RoleLeadership:
		return true
	case domain.RoleStudent:
		return identity.UserID != "" && ticket.StudentID == identity.UserID
	case domain.RoleDepartment:
		return identity.Department != "" && ticket.IsAssigned() && strings.EqualFold(*ticket.AssignedTo, identity.Department)
	}
	return false
}

// ScopeForRole drops tickets the identity may not see.
func ScopeForRole(tickets []domain.Ticket, identity domain.Identity) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		if CanView(identity, &tickets[i]) {
			out = append(out, tickets[i])
		}
	}
	return out
}

// ListQuery combines criteria, ordering and paging for ListTickets.
type ListQuery struct {
	Criteria TicketCriteria
	Sort     SortSpec
	Page     int
	PageSize int
}

// QueryService answers ticket list queries.
type QueryService struct {
	tickets repository.TicketRepository
	locale  language.Tag
	logger  *zap.Logger
	instr   instrumentation
}

// QueryDependencies bundles query service collaborators.
type QueryDependencies struct {
	TicketRepo repository.TicketRepository
	Locale     string
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewQueryService builds the service. An unparsable locale falls back to root.
func NewQueryService(deps QueryDependencies) *QueryService {
	locale, err := language.Parse(deps.Locale)
	if err != nil {
		locale = language.Und
	}
	return &QueryService{
		tickets: deps.TicketRepo,
		locale:  locale,
		logger:  loggerOrNop(deps.Logger),
		instr:   instrumentation{metrics: deps.Metrics},
	}
}

// ListTickets fetches, scopes, filters, sorts and pages tickets for identity.
// Scoping is applied here whatever the backend already did.
func (s *QueryService) ListTickets(ctx context.Context, identity domain.Identity, q ListQuery) (page Page, err error) {
	ctx, span := s.instr.start(ctx, "list_tickets", identity)
	defer func() { s.instr.end(span, "list_tickets", err) }()

	if err = requireIdentity(identity); err != nil {
		return Page{}, err
	}

	var hint repository.TicketFilter
	switch identity.Role {
	case domain.RoleStudent:
		hint.StudentID = &identity.UserID
	case domain.RoleDepartment:
		if identity.Department == "" {
			return Paginate(nil, q.Page, q.PageSize)
		}
		hint.AssignedTo = &identity.Department
	}

	tickets, err := s.tickets.List(ctx, hint)
	if err != nil {
		return Page{}, mapRepoError(err, "ticket", nil)
	}
	visible := ScopeForRole(tickets, identity)
	filtered := Filter(visible, q.Criteria)
	sorted := sortTickets(filtered, q.Sort, s.locale)
	return Paginate(sorted, q.Page, q.PageSize)
}
