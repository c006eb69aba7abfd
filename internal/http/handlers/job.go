package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/pedrohsmesquita/Lectria/internal/http/response"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	"github.com/pedrohsmesquita/Lectria/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondErr(c, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.GetByID(dbctx.Context{Ctx: c.Request.Context()}, jobID)
	if err != nil {
		response.RespondErr(c, "job_not_found", err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}
