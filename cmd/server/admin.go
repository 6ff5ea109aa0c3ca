package main

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/Simplici0/primeestate/internal/store"
)

const logsPerPage = 100

type adminOverviewViewData struct {
	baseViewData
	Overview store.Overview
}

type adminLogsViewData struct {
	baseViewData
	Logs     []store.CalculationLog
	Total    int
	Page     int
	Pages    int
	PrevPage int
	NextPage int
}

type adminUsersViewData struct {
	baseViewData
	Users []store.User
}

func (s *server) handleAdminOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := s.store.Overview(r.Context(), s.now())
	if err != nil {
		s.logger.Error("load overview", zap.Error(err))
		http.Error(w, "failed to load overview", http.StatusInternalServerError)
		return
	}

	s.renderTemplate(w, r, http.StatusOK, "admin_overview.html", adminOverviewViewData{
		baseViewData: s.baseView(r),
		Overview:     overview,
	})
}

func (s *server) handleAdminLogs(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	total, err := s.store.CountCalculations(r.Context())
	if err != nil {
		s.logger.Error("count calculations", zap.Error(err))
		http.Error(w, "failed to load calculations", http.StatusInternalServerError)
		return
	}

	pages := max(1, (total+logsPerPage-1)/logsPerPage)
	page = min(page, pages)

	logs, err := s.store.ListCalculations(r.Context(), logsPerPage, (page-1)*logsPerPage)
	if err != nil {
		s.logger.Error("list calculations", zap.Int("page", page), zap.Error(err))
		http.Error(w, "failed to load calculations", http.StatusInternalServerError)
		return
	}

	data := adminLogsViewData{
		baseViewData: s.baseView(r),
		Logs:         logs,
		Total:        total,
		Page:         page,
		Pages:        pages,
	}
	if page > 1 {
		data.PrevPage = page - 1
	}
	if page < data.Pages {
		data.NextPage = page + 1
	}

	s.renderTemplate(w, r, http.StatusOK, "admin_logs.html", data)
}

func (s *server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.logger.Error("list users", zap.Error(err))
		http.Error(w, "failed to load users", http.StatusInternalServerError)
		return
	}

	s.renderTemplate(w, r, http.StatusOK, "admin_users.html", adminUsersViewData{
		baseViewData: s.baseView(r),
		Users:        users,
	})
}
