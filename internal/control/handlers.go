package control

import (
	"github.com/gofiber/fiber/v2"

	"invisible-cloak/internal/core"
)

type cloakRequest struct {
	Enabled *bool `json:"enabled"`
}

type rangeRequest struct {
	Lower *[3]int `json:"lower"`
	Upper *[3]int `json:"upper"`
}

type pickRequest struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

type rangeResponse struct {
	Preset string `json:"preset"`
	Lower  [3]int `json:"lower"`
	Upper  [3]int `json:"upper"`
}

func newRangeResponse(preset string, r core.HSVRange) rangeResponse {
	return rangeResponse{Preset: preset, Lower: r.Lower.Ints(), Upper: r.Upper.Ints()}
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Status())
}

func (s *Server) handleSetCloak(c *fiber.Ctx) error {
	var req cloakRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}
	if req.Enabled == nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing field: enabled")
	}

	s.ctrl.SetEnabled(*req.Enabled)
	return c.JSON(fiber.Map{"enabled": *req.Enabled})
}

func (s *Server) handleToggleCloak(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"enabled": s.ctrl.Toggle()})
}

func (s *Server) handleListPresets(c *fiber.Ctx) error {
	status := s.ctrl.Status()
	return c.JSON(fiber.Map{
		"presets": status.Presets,
		"active":  status.Preset,
	})
}

func (s *Server) handleSelectPreset(c *fiber.Ctx) error {
	name := c.Params("name")
	r, err := s.ctrl.SelectPreset(name)
	if err != nil {
		return err
	}
	return c.JSON(newRangeResponse(s.ctrl.Status().Preset, r))
}

func (s *Server) handleSetRange(c *fiber.Ctx) error {
	var req rangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}
	if req.Lower == nil || req.Upper == nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing field: lower and upper are required")
	}

	lower, err := core.HSVFromInts(req.Lower[0], req.Lower[1], req.Lower[2])
	if err != nil {
		return err
	}
	upper, err := core.HSVFromInts(req.Upper[0], req.Upper[1], req.Upper[2])
	if err != nil {
		return err
	}
	r, err := core.NewHSVRange(lower, upper)
	if err != nil {
		return err
	}

	if err := s.ctrl.SetRange(r); err != nil {
		return err
	}
	return c.JSON(newRangeResponse(s.ctrl.Status().Preset, r))
}

func (s *Server) handlePick(c *fiber.Ctx) error {
	var req pickRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}
	if req.X == nil || req.Y == nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing field: x and y are required")
	}

	r, err := s.ctrl.PickAt(*req.X, *req.Y)
	if err != nil {
		return err
	}
	return c.JSON(newRangeResponse(s.ctrl.Status().Preset, r))
}

func (s *Server) handleStartRecording(c *fiber.Ctx) error {
	path, err := s.ctrl.StartRecording()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"path": path})
}

func (s *Server) handleStopRecording(c *fiber.Ctx) error {
	status, err := s.ctrl.StopRecording()
	if err != nil {
		return err
	}
	return c.JSON(status)
}

func (s *Server) handleRecapture(c *fiber.Ctx) error {
	delay := s.ctrl.RecaptureBackground()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"delay_ms": delay.Milliseconds()})
}

func (s *Server) handleSnapshotJPEG(c *fiber.Ctx) error {
	data, err := s.ctrl.SnapshotJPEG()
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Type("jpg")
	return c.Send(data)
}

func (s *Server) handleSaveSnapshot(c *fiber.Ctx) error {
	path, err := s.ctrl.SaveSnapshot()
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"path": path})
}
