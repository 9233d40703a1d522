package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

func TestFilterConjunction(t *testing.T) {
	tickets := fixtureTickets()
	got := Filter(tickets, TicketCriteria{Status: "resolved", IssueType: "technical"})

	var want []string
	for _, tk := range tickets {
		if tk.Status == domain.TicketStatusResolved && tk.IssueType == domain.IssueTypeTechnical {
			want = append(want, tk.ID)
		}
	}
	assert.Equal(t, []string{"t1", "t5"}, want)
	assert.Equal(t, want, ids(got))
}

func TestFilterWildcardsAndUnassigned(t *testing.T) {
	tickets := fixtureTickets()

	assert.Len(t, Filter(tickets, TicketCriteria{}), len(tickets))
	assert.Len(t, Filter(tickets, TicketCriteria{Status: "all", IssueType: "all", AssignedTo: "all", Priority: "all"}), len(tickets))
	assert.Equal(t, []string{"t2", "t5"}, ids(Filter(tickets, TicketCriteria{AssignedTo: FilterUnassigned})))
	assert.Equal(t, []string{"t1", "t3", "t7"}, ids(Filter(tickets, TicketCriteria{AssignedTo: "IT Department"})))
	assert.Equal(t, []string{"t1", "t3", "t7"}, ids(Filter(tickets, TicketCriteria{AssignedTo: "it department"})))
	assert.Equal(t, []string{"t1", "t6"}, ids(Filter(tickets, TicketCriteria{Priority: "high"})))
}

func TestFilterSearch(t *testing.T) {
	tickets := fixtureTickets()

	got := Filter(tickets, TicketCriteria{Status: "all", IssueType: "all", SearchQuery: "payment"})
	assert.Equal(t, []string{"t2"}, ids(got))

	// title, description and student name are all searched, case-insensitively
	assert.Equal(t, []string{"t1"}, ids(Filter(tickets, TicketCriteria{SearchQuery: "WIFI"})))
	assert.Equal(t, []string{"t3"}, ids(Filter(tickets, TicketCriteria{SearchQuery: "screen"})))
	assert.Equal(t, []string{"t7"}, ids(Filter(tickets, TicketCriteria{SearchQuery: "xuan"})))

	assert.Empty(t, Filter(tickets, TicketCriteria{SearchQuery: "payment", Status: "resolved"}))
}

func TestSortDefaultNewestFirst(t *testing.T) {
	got := Sort(fixtureTickets(), DefaultSort())
	assert.Equal(t, []string{"t7", "t6", "t5", "t4", "t3", "t2", "t1"}, ids(got))
}

func TestSortStringFieldsAndStability(t *testing.T) {
	tickets := fixtureTickets()

	byStatus := Sort(tickets, SortSpec{Field: SortByStatus, Direction: SortAsc})
	assert.Equal(t, []string{"t7", "t6", "t3", "t2", "t1", "t4", "t5"}, ids(byStatus))

	byDept := Sort(tickets, SortSpec{Field: SortByAssignedTo, Direction: SortAsc})
	assert.Equal(t, []string{"t4", "t6", "t1", "t3", "t7", "t2", "t5"}, ids(byDept))

	desc := Sort(tickets, SortSpec{Field: SortByTitle, Direction: SortDesc})
	assert.Equal(t, "t1", desc[0].ID)
	assert.Equal(t, "t6", desc[len(desc)-1].ID)

	// input is not mutated
	assert.Equal(t, []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7"}, ids(tickets))
}

func TestSortCollatesAccentedNames(t *testing.T) {
	tickets := []domain.Ticket{
		{ID: "a", StudentName: "Đặng"},
		{ID: "b", StudentName: "Dung"},
		{ID: "c", StudentName: "Bùi"},
	}
	got := sortTickets(tickets, SortSpec{Field: SortByStudentName, Direction: SortAsc}, language.Vietnamese)
	assert.Equal(t, []string{"c", "b", "a"}, ids(got))
}

func TestSortToggle(t *testing.T) {
	spec := DefaultSort()
	assert.Equal(t, SortSpec{Field: SortByCreatedAt, Direction: SortDesc}, spec)

	spec = spec.Toggle(SortByCreatedAt)
	assert.Equal(t, SortAsc, spec.Direction)

	spec = spec.Toggle(SortByTitle)
	assert.Equal(t, SortSpec{Field: SortByTitle, Direction: SortDesc}, spec)

	spec = spec.Toggle(SortByTitle)
	assert.Equal(t, SortAsc, spec.Direction)
}

func TestParseSortSpec(t *testing.T) {
	spec, err := ParseSortSpec("", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultSort(), spec)

	spec, err = ParseSortSpec("priority", "ASC")
	require.NoError(t, err)
	assert.Equal(t, SortSpec{Field: SortByPriority, Direction: SortAsc}, spec)

	_, err = ParseSortSpec("colour", "asc")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = ParseSortSpec("title", "sideways")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestPaginate(t *testing.T) {
	tickets := fixtureTickets()

	page, err := Paginate(tickets, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2", "t3"}, ids(page.Items))
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 7, page.Total)

	page, err = Paginate(tickets, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"t7"}, ids(page.Items))

	page, err = Paginate(tickets, 4, 3)
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)

	page, err = Paginate(nil, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, page.TotalPages)
	assert.Empty(t, page.Items)

	_, err = Paginate(tickets, 1, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestScopeForRole(t *testing.T) {
	tickets := fixtureTickets()

	assert.Len(t, ScopeForRole(tickets, manager), len(tickets))
	assert.Len(t, ScopeForRole(tickets, leadership), len(tickets))
	assert.Equal(t, []string{"t1", "t3", "t7"}, ids(ScopeForRole(tickets, itStaff)))
	lowerCased := domain.Identity{UserID: "u-it2", Role: domain.RoleDepartment, Department: "it department"}
	assert.Equal(t, []string{"t1", "t3", "t7"}, ids(ScopeForRole(tickets, lowerCased)))
	assert.Equal(t, []string{"t2"}, ids(ScopeForRole(tickets, domain.Identity{UserID: "s-t2", Role: domain.RoleStudent})))
	assert.Empty(t, ScopeForRole(tickets, domain.Identity{UserID: "x", Role: "janitor"}))
	assert.Empty(t, ScopeForRole(tickets, domain.Identity{UserID: "x", Role: domain.RoleDepartment}))
}

func TestListTicketsAppliesScopeThenQuery(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	a1 := h.create(t, studentAlice, "Alice wifi")
	a2 := h.create(t, studentAlice, "Alice printer")
	b1 := h.create(t, studentBob, "Bob wifi")
	h.assign(t, a1.ID, "IT Department")
	h.assign(t, b1.ID, "IT Department")
	h.assign(t, a2.ID, "Finance")

	page, err := h.queries.ListTickets(ctx, studentAlice, ListQuery{Sort: DefaultSort(), Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{a2.ID, a1.ID}, ids(page.Items))

	page, err = h.queries.ListTickets(ctx, itStaff, ListQuery{
		Criteria: TicketCriteria{SearchQuery: "wifi"},
		Sort:     SortSpec{Field: SortByCreatedAt, Direction: SortAsc},
		Page:     1,
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{a1.ID, b1.ID}, ids(page.Items))

	page, err = h.queries.ListTickets(ctx, manager, ListQuery{Sort: DefaultSort(), Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, []string{a1.ID}, ids(page.Items))

	_, err = h.queries.ListTickets(ctx, manager, ListQuery{Sort: DefaultSort(), Page: 1})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.queries.ListTickets(ctx, domain.Identity{}, ListQuery{Page: 1, PageSize: 1})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}
