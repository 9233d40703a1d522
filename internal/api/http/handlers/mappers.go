package handlers

import (
	"github.com/spec-kit/campus-helpdesk/internal/api/dto"
	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/service"
)

func threadResponse(ticket *domain.Ticket, withMessages bool) dto.ThreadResponse {
	resp := dto.ThreadResponse{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		IssueType:   ticket.IssueType,
		Status:      ticket.Status,
		Priority:    ticket.Priority,
		AssignedTo:  ticket.AssignedTo,
		StudentID:   ticket.StudentID,
		StudentName: ticket.StudentName,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
	if withMessages {
		resp.Messages = messageResponses(ticket.Messages)
	}
	return resp
}

func messageResponse(msg *domain.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:         msg.ID,
		ThreadID:   msg.ThreadID,
		Text:       msg.Content,
		SenderType: msg.SenderType,
		SenderName: msg.SenderName,
		CreatedAt:  msg.CreatedAt,
	}
}

func messageResponses(msgs []domain.Message) []dto.MessageResponse {
	out := make([]dto.MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, messageResponse(&msgs[i]))
	}
	return out
}

func historyResponses(entries []domain.TicketHistory) []dto.HistoryResponse {
	out := make([]dto.HistoryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, dto.HistoryResponse{
			ID:            entry.ID,
			ChangedBy:     entry.ChangedBy,
			ChangedByRole: entry.ChangedByRole,
			ChangeType:    entry.ChangeType,
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return out
}

func departmentResponse(dept *domain.Department) dto.DepartmentResponse {
	return dto.DepartmentResponse{
		ID:          dept.ID,
		Name:        dept.Name,
		Description: dept.Description,
		CreatedAt:   dept.CreatedAt,
	}
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:         user.ID,
		Username:   user.Username,
		FullName:   user.FullName,
		Email:      user.Email,
		Role:       user.Role,
		Department: user.Department,
	}
}

func overviewResponse(o *service.Overview) dto.OverviewResponse {
	resp := dto.OverviewResponse{
		Total:                       o.Total,
		ByStatus:                    make(map[string]int, len(o.ByStatus)),
		ByIssueType:                 make(map[string]int, len(o.ByIssueType)),
		ByDepartment:                o.ByDepartment,
		AverageFirstResponseMinutes: o.AverageFirstResponseMinutes,
		FirstResponses:              make([]dto.FirstResponseEntry, 0, len(o.FirstResponses)),
	}
	for status, n := range o.ByStatus {
		resp.ByStatus[string(status)] = n
	}
	for issue, n := range o.ByIssueType {
		resp.ByIssueType[string(issue)] = n
	}
	for _, fr := range o.FirstResponses {
		resp.FirstResponses = append(resp.FirstResponses, dto.FirstResponseEntry{TicketID: fr.TicketID, Minutes: fr.Minutes})
	}
	return resp
}

func statisticsResponse(s *service.Statistics) dto.StatisticsResponse {
	resp := dto.StatisticsResponse{
		Total:        s.Total,
		ByStatus:     make(map[string]int, len(s.ByStatus)),
		ByDepartment: s.ByDepartment,
	}
	for status, n := range s.ByStatus {
		resp.ByStatus[string(status)] = n
	}
	return resp
}
