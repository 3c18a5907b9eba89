package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/fdg312/fittrack/internal/storage"
)

// dayRow is one aggregated day inside a report.
type dayRow struct {
	Date           string
	Meals          int
	CaloriesIn     float64
	Protein        float64
	Carbs          float64
	Fat            float64
	Workouts       int
	CaloriesBurned float64
	DistanceKm     float64
	Steps          int
}

// Generator renders nutrition/activity exports from the stored logs.
type Generator struct {
	meals    storage.MealsStorage
	sessions storage.SessionsStorage
}

func NewGenerator(meals storage.MealsStorage, sessions storage.SessionsStorage) *Generator {
	return &Generator{meals: meals, sessions: sessions}
}

// GenerateReport builds the report body for the owner over [from, to].
func (g *Generator) GenerateReport(ctx context.Context, ownerUserID string, req CreateReportRequest) ([]byte, error) {
	rows, err := g.aggregate(ctx, ownerUserID, req.From, req.To)
	if err != nil {
		return nil, err
	}

	switch req.Format {
	case FormatCSV:
		return g.renderCSV(rows)
	case FormatPDF:
		return g.renderPDF(rows, req.From, req.To)
	default:
		return nil, ErrInvalidFormat
	}
}

// aggregate folds the meal and session logs into per-day totals. Days without
// activity still get a row so the report covers the whole range.
func (g *Generator) aggregate(ctx context.Context, ownerUserID, from, to string) ([]dayRow, error) {
	fromDate, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, ErrInvalidDate
	}
	toDate, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, ErrInvalidDate
	}

	byDate := make(map[string]*dayRow)
	var order []string
	for d := fromDate; !d.After(toDate); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		byDate[key] = &dayRow{Date: key}
		order = append(order, key)
	}

	meals, err := g.meals.ListMeals(ctx, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("list meals: %w", err)
	}
	for _, meal := range meals {
		row, ok := byDate[meal.Timestamp.Format("2006-01-02")]
		if !ok {
			continue
		}
		row.Meals++
		row.CaloriesIn += meal.TotalCalories
		for _, food := range meal.Foods {
			row.Protein += food.Protein
			row.Carbs += food.Carbs
			row.Fat += food.Fat
		}
	}

	sessions, err := g.sessions.ListSessions(ctx, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	for _, session := range sessions {
		row, ok := byDate[session.EndedAt.Format("2006-01-02")]
		if !ok {
			continue
		}
		row.Workouts++
		row.CaloriesBurned += session.Calories
		row.DistanceKm += session.DistanceKm
		row.Steps += session.Steps
	}

	rows := make([]dayRow, 0, len(order))
	for _, key := range order {
		rows = append(rows, *byDate[key])
	}
	return rows, nil
}

func (g *Generator) renderCSV(rows []dayRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"date", "meals", "calories_in", "protein_g", "carbs_g", "fat_g", "workouts", "calories_burned", "distance_km", "steps"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, row := range rows {
		record := []string{
			row.Date,
			strconv.Itoa(row.Meals),
			formatFloat(row.CaloriesIn),
			formatFloat(row.Protein),
			formatFloat(row.Carbs),
			formatFloat(row.Fat),
			strconv.Itoa(row.Workouts),
			formatFloat(row.CaloriesBurned),
			formatFloat(row.DistanceKm),
			strconv.Itoa(row.Steps),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) renderPDF(rows []dayRow, from, to string) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "FitTrack Report")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s - %s", from, to))
	pdf.Ln(10)

	headers := []string{"Date", "Meals", "Cal In", "Protein", "Carbs", "Fat", "Workouts", "Cal Out", "Dist (km)", "Steps"}
	widths := []float64{28, 18, 24, 24, 24, 24, 22, 24, 26, 24}

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	var totals dayRow
	for _, row := range rows {
		cells := []string{
			row.Date,
			strconv.Itoa(row.Meals),
			formatFloat(row.CaloriesIn),
			formatFloat(row.Protein),
			formatFloat(row.Carbs),
			formatFloat(row.Fat),
			strconv.Itoa(row.Workouts),
			formatFloat(row.CaloriesBurned),
			formatFloat(row.DistanceKm),
			strconv.Itoa(row.Steps),
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 7, c, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		totals.Meals += row.Meals
		totals.CaloriesIn += row.CaloriesIn
		totals.Protein += row.Protein
		totals.Carbs += row.Carbs
		totals.Fat += row.Fat
		totals.Workouts += row.Workouts
		totals.CaloriesBurned += row.CaloriesBurned
		totals.DistanceKm += row.DistanceKm
		totals.Steps += row.Steps
	}

	pdf.SetFont("Arial", "B", 9)
	totalCells := []string{
		"Total",
		strconv.Itoa(totals.Meals),
		formatFloat(totals.CaloriesIn),
		formatFloat(totals.Protein),
		formatFloat(totals.Carbs),
		formatFloat(totals.Fat),
		strconv.Itoa(totals.Workouts),
		formatFloat(totals.CaloriesBurned),
		formatFloat(totals.DistanceKm),
		strconv.Itoa(totals.Steps),
	}
	for i, c := range totalCells {
		pdf.CellFormat(widths[i], 8, c, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
