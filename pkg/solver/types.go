package solver

// SolveRequest is the payload accepted by the remote solver's /solve endpoint.
type SolveRequest struct {
	Email           string   `json:"email"`
	PassedCourses   []string `json:"ramos_pasados"`
	PriorityCourses []string `json:"ramos_prioritarios"`
	PreferredSlots  []string `json:"horarios_preferidos"`
	ForbiddenSlots  []string `json:"horarios_prohibidos"`
	Curriculum      string   `json:"malla"`
	Sheet           string   `json:"sheet,omitempty"`
	StudentRanking  float64  `json:"student_ranking"`
	Filters         *Filters `json:"filtros,omitempty"`
	Optimizations   []string `json:"optimizations,omitempty"`
}

// Filters groups the optional solver filters.
type Filters struct {
	FreeDays             *FreeDaysFilter      `json:"dias_horarios_libres,omitempty"`
	GapBetweenActivities *GapFilter           `json:"ventana_entre_actividades,omitempty"`
	Professors           *ProfessorPreference `json:"preferencias_profesores,omitempty"`
}

// FreeDaysFilter configures free days, forbidden ranges and gap minimisation.
type FreeDaysFilter struct {
	Enabled            bool        `json:"habilitado"`
	PreferredFreeDays  []string    `json:"dias_libres_preferidos,omitempty"`
	MinimizeGaps       bool        `json:"minimizar_ventanas"`
	IdealGapMinutes    *int        `json:"ventana_ideal_minutos,omitempty"`
	ForbiddenTimeRange []TimeRange `json:"franjas_prohibidas,omitempty"`
}

// TimeRange is a forbidden window on a day, e.g. {LU 08:30 09:50}.
type TimeRange struct {
	Day   string `json:"dia"`
	Start string `json:"inicio"`
	End   string `json:"fin"`
}

// GapFilter sets the minimum break between classes.
type GapFilter struct {
	Enabled        bool `json:"habilitado"`
	MinutesBetween *int `json:"minutos_entre_clases,omitempty"`
}

// ProfessorPreference lists professors to prefer or avoid.
type ProfessorPreference struct {
	Enabled   bool     `json:"habilitado"`
	Preferred []string `json:"profesores_preferidos,omitempty"`
	Avoid     []string `json:"profesores_evitar,omitempty"`
}

// SolveResponse carries the ranked solutions.
type SolveResponse struct {
	Solutions []Solution `json:"soluciones"`
}

// Solution is one candidate timetable.
type Solution struct {
	TotalScore float64   `json:"total_score"`
	Sections   []Section `json:"secciones"`
}

// Section is a course section with its weekly blocks, e.g. "LU 08:30 - 09:50".
type Section struct {
	Course    string   `json:"ramo"`
	Section   string   `json:"seccion"`
	Professor string   `json:"profesor,omitempty"`
	Blocks    []string `json:"bloques"`
}

type errorBody struct {
	Error string `json:"error"`
}
