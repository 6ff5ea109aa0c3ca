package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Simplici0/primeestate/internal/notify"
	"github.com/Simplici0/primeestate/internal/pricing"
)

const invalidPriceMessage = "Please enter a valid property price"

type option struct {
	Value string
	Label string
}

type calculatorForm struct {
	Price           string
	PropertyType    string
	Region          string
	IncludeMortgage bool
}

type calculatorViewData struct {
	baseViewData
	Form          calculatorForm
	PropertyTypes []option
	Regions       []option
	Breakdown     *pricing.Breakdown
}

func defaultCalculatorForm() calculatorForm {
	return calculatorForm{
		PropertyType: pricing.Resale.String(),
		Region:       pricing.Valencia.String(),
	}
}

func (s *server) calculatorView(r *http.Request, form calculatorForm) calculatorViewData {
	data := calculatorViewData{baseViewData: s.baseView(r), Form: form}
	for _, pt := range pricing.PropertyTypes() {
		data.PropertyTypes = append(data.PropertyTypes, option{Value: pt.String(), Label: pt.Label()})
	}
	for _, region := range pricing.Regions() {
		data.Regions = append(data.Regions, option{Value: region.String(), Label: region.Label()})
	}
	return data
}

// parseCalculatorForm reads the calculator fields. Empty selections fall back
// to the form defaults; ok=false means the price cannot produce a breakdown.
func parseCalculatorForm(r *http.Request) (calculatorForm, pricing.Input, bool, error) {
	form := defaultCalculatorForm()
	form.Price = strings.TrimSpace(r.FormValue("price"))
	if v := strings.TrimSpace(r.FormValue("property_type")); v != "" {
		form.PropertyType = v
	}
	if v := strings.TrimSpace(r.FormValue("region")); v != "" {
		form.Region = v
	}
	form.IncludeMortgage = parseBool(r.FormValue("include_mortgage"))

	in, ok, err := pricing.ParseInput(form.Price, form.PropertyType, form.Region, form.IncludeMortgage)
	return form, in, ok, err
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func (s *server) handleCalculatorForm(w http.ResponseWriter, r *http.Request) {
	s.renderTemplate(w, r, http.StatusOK, "calculator.html", s.calculatorView(r, defaultCalculatorForm()))
}

func (s *server) handleCalculatorPreview(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	_, in, ok, err := parseCalculatorForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !ok {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		return
	}

	b, _ := pricing.Calculate(in)
	s.renderPartial(w, "breakdown", b)
}

func (s *server) handleCalculatorSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form, in, ok, err := parseCalculatorForm(r)
	if err != nil {
		data := s.calculatorView(r, defaultCalculatorForm())
		data.Form.Price = form.Price
		data.ErrorMessage = "Please choose a supported property type and region."
		s.renderTemplate(w, r, http.StatusBadRequest, "calculator.html", data)
		return
	}
	data := s.calculatorView(r, form)
	if !ok {
		data.ErrorMessage = invalidPriceMessage
		s.renderTemplate(w, r, http.StatusBadRequest, "calculator.html", data)
		return
	}

	b, _ := pricing.Calculate(in)
	data.Breakdown = &b

	var userID, userEmail string
	if data.CurrentUser != nil {
		userID, userEmail = data.CurrentUser.ID, data.CurrentUser.Email
	}

	entry, err := s.store.InsertCalculation(r.Context(), userID, in, b)
	if err != nil {
		s.logger.Error("save calculation", zap.String("user_id", userID), zap.Error(err))
		data.ErrorMessage = "Failed to save calculation"
		s.renderTemplate(w, r, http.StatusOK, "calculator.html", data)
		return
	}

	err = s.notifier.NotifyCalculation(r.Context(), notify.Report{
		UserEmail: userEmail,
		UserID:    userID,
		Input:     in,
		Breakdown: entry.Breakdown,
		At:        entry.CreatedAt,
	})
	if err != nil {
		s.logger.Warn("send calculation notification", zap.String("calculation_id", entry.ID), zap.Error(err))
		data.WarningMessage = "Calculation saved but failed to send email notification"
	} else {
		data.SuccessMessage = "Calculation saved successfully"
	}

	s.logger.Info("calculation saved",
		zap.String("calculation_id", entry.ID),
		zap.String("property_type", in.PropertyType.String()),
		zap.String("region", in.Region.String()),
		zap.String("price", in.Price.String()),
	)
	s.renderTemplate(w, r, http.StatusOK, "calculator.html", data)
}

// apiCalculateRequest accepts the price as a JSON number or string. An
// unparsable price is a NoResult, not a bad request.
type apiCalculateRequest struct {
	Price           json.RawMessage      `json:"price"`
	PropertyType    pricing.PropertyType `json:"propertyType"`
	Region          pricing.Region       `json:"region"`
	IncludeMortgage bool                 `json:"includeMortgage"`
}

type apiCalculateResponse struct {
	Breakdown *pricing.Breakdown `json:"breakdown"`
}

func (s *server) handleAPICalculate(w http.ResponseWriter, r *http.Request) {
	var req apiCalculateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	if err := dec.Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.PropertyType.Valid() {
		writeJSONError(w, http.StatusBadRequest, "unknown property type")
		return
	}
	if !req.Region.Valid() {
		writeJSONError(w, http.StatusBadRequest, "unknown region")
		return
	}

	var resp apiCalculateResponse
	price, ok := pricing.ParsePrice(strings.Trim(string(req.Price), `"`))
	if ok {
		in := pricing.Input{
			Price:           price,
			PropertyType:    req.PropertyType,
			Region:          req.Region,
			IncludeMortgage: req.IncludeMortgage,
		}
		if b, ok := pricing.Calculate(in); ok {
			resp.Breakdown = &b
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
