package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/schedule"
)

// scheduleOwner resolves the professional from the professionalId query
// parameter (admins) or the caller (professionals).
func scheduleOwner(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	pid, err := actingProfessional(identity(r), r.URL.Query().Get("professionalId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return uuid.Nil, false
	}
	return pid, true
}

func listRulesHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pid, ok := scheduleOwner(w, r)
		if !ok {
			return
		}

		rules, err := svc.ListRules(r.Context(), pid)
		if err != nil {
			handleScheduleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, mapSlice(rules, toRuleResponse))
	}
}

func createRuleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pid, ok := scheduleOwner(w, r)
		if !ok {
			return
		}

		var req RuleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		rule, err := svc.CreateRule(r.Context(), pid, req.toInput())
		if err != nil {
			handleScheduleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toRuleResponse(*rule))
	}
}

func updateRuleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pid, ok := scheduleOwner(w, r)
		if !ok {
			return
		}

		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_rule_id", err.Error())
			return
		}

		var req RuleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		rule, err := svc.UpdateRule(r.Context(), pid, id, req.toInput())
		if err != nil {
			handleScheduleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toRuleResponse(*rule))
	}
}

func deleteRuleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pid, ok := scheduleOwner(w, r)
		if !ok {
			return
		}

		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_rule_id", err.Error())
			return
		}

		if err := svc.DeleteRule(r.Context(), pid, id); err != nil {
			handleScheduleError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listBlocksHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pid, ok := scheduleOwner(w, r)
		if !ok {
			return
		}

		blocks, err := svc.ListBlocks(r.Context(), pid)
		if err != nil {
			handleScheduleError(w, r, err)
			return
		}

		loc := svc.Location()
		writeJSON(w, http.StatusOK, mapSlice(blocks, func(b schedule.Block) BlockResponse {
			return toBlockResponse(b, loc)
		}))
	}
}

func createBlockHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pid, ok := scheduleOwner(w, r)
		if !ok {
			return
		}

		var req BlockRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		in, err := req.toInput(svc.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		block, err := svc.CreateBlock(r.Context(), pid, in)
		if err != nil {
			handleScheduleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBlockResponse(*block, svc.Location()))
	}
}

func deleteBlockHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pid, ok := scheduleOwner(w, r)
		if !ok {
			return
		}

		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_block_id", err.Error())
			return
		}

		if err := svc.DeleteBlock(r.Context(), pid, id); err != nil {
			handleScheduleError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (req RuleRequest) toInput() schedule.RuleInput {
	return schedule.RuleInput{
		Weekday:     *req.Weekday,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		SlotMinutes: req.SlotMinutes,
	}
}

func (req BlockRequest) toInput(loc *time.Location) (schedule.BlockInput, error) {
	in := schedule.BlockInput{Reason: req.Reason, AllDay: req.AllDay}

	if req.AllDay {
		switch {
		case req.Date != "":
			d, err := time.ParseInLocation(time.DateOnly, req.Date, loc)
			if err != nil {
				return in, errors.New("date must be formatted as YYYY-MM-DD")
			}
			in.Start = d
		case req.StartDateTime != "":
			start, err := parseDateTime(req.StartDateTime, loc)
			if err != nil {
				return in, err
			}
			in.Start = start
		default:
			return in, errors.New("all-day blocks need date or startDateTime")
		}
		return in, nil
	}

	if req.StartDateTime == "" || req.EndDateTime == "" {
		return in, errors.New("startDateTime and endDateTime are required")
	}
	start, err := parseDateTime(req.StartDateTime, loc)
	if err != nil {
		return in, err
	}
	end, err := parseDateTime(req.EndDateTime, loc)
	if err != nil {
		return in, err
	}
	in.Start, in.End = start, end
	return in, nil
}

func handleScheduleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, schedule.ErrRuleNotFound):
		writeError(w, http.StatusNotFound, "rule_not_found", "schedule rule not found")
	case errors.Is(err, schedule.ErrBlockNotFound):
		writeError(w, http.StatusNotFound, "block_not_found", "time block not found")
	case errors.Is(err, schedule.ErrInvalidRule), errors.Is(err, schedule.ErrInvalidBlock):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeInternal(w, r, err)
	}
}
