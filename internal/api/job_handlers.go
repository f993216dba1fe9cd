package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/nhle/trackmate/internal/crossref"
	"github.com/nhle/trackmate/internal/model"
	"github.com/nhle/trackmate/internal/store"
)

const (
	jobNotFound      = "Job application not found"
	relatedEmailScan = 500
)

func (s *Server) listJobs(c *fiber.Ctx) error {
	filter := store.JobFilter{
		Query:    c.Query("q"),
		SortBy:   c.Query("sortBy"),
		SortDesc: c.Query("order") == "desc",
		Limit:    c.QueryInt("limit", 100),
		Offset:   c.QueryInt("skip", 0),
	}
	if filter.Limit < 1 || filter.Offset < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be positive and skip non-negative")
	}
	if raw := c.Query("status"); raw != "" {
		status, err := model.ParseJobStatus(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		filter.Status = &status
	}

	jobs, err := s.deps.Store.GetJobs(c.UserContext(), currentUser(c).ID, filter)
	if err != nil {
		return err
	}
	if jobs == nil {
		jobs = []model.JobApplication{}
	}
	return c.JSON(jobs)
}

func (s *Server) createJob(c *fiber.Ctx) error {
	var req model.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	job, err := s.deps.Store.CreateJob(c.UserContext(), model.JobApplication{
		UserID:          currentUser(c).ID,
		CompanyName:     req.CompanyName,
		PositionTitle:   req.PositionTitle,
		Status:          req.Status,
		ApplicationDate: req.ApplicationDate,
		SalaryRange:     req.SalaryRange,
		Location:        req.Location,
		Notes:           req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(job)
}

func (s *Server) getJob(c *fiber.Ctx) error {
	job, err := s.deps.Store.GetJobByID(c.UserContext(), currentUser(c).ID, c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, jobNotFound)
	}
	if err != nil {
		return err
	}
	return c.JSON(job)
}

// jobEmails lists stored emails that mention the application's company.
func (s *Server) jobEmails(c *fiber.Ctx) error {
	user := currentUser(c)
	job, err := s.deps.Store.GetJobByID(c.UserContext(), user.ID, c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, jobNotFound)
	}
	if err != nil {
		return err
	}

	emails, err := s.deps.Store.GetEmails(c.UserContext(), user.ID, store.EmailQuery{Limit: relatedEmailScan})
	if err != nil {
		return err
	}
	return c.JSON(emailList(crossref.EmailsForJob(*job, emails)))
}

func (s *Server) updateJob(c *fiber.Ctx) error {
	var req model.UpdateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Empty() {
		return fiber.NewError(fiber.StatusBadRequest, "No fields to update")
	}
	if err := req.Validate(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	job, err := s.deps.Store.UpdateJob(c.UserContext(), currentUser(c).ID, c.Params("id"), req)
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, jobNotFound)
	}
	if err != nil {
		return err
	}
	return c.JSON(job)
}

func (s *Server) deleteJob(c *fiber.Ctx) error {
	err := s.deps.Store.DeleteJob(c.UserContext(), currentUser(c).ID, c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, jobNotFound)
	}
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
