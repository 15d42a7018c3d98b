package mapper

import (
	"planning/internal/api/handler/response"
	"planning/internal/api/models"
	"planning/internal/api/service"
)

// ToJobView converts a planning to the external view shape. Snapshot decoding
// failures fall back to an empty machine list rather than failing the read;
// the integrity endpoints exist to surface a corrupt snapshot.
func ToJobView(p models.JobPlanning) response.JobView {
	view := response.JobView{
		ID:               p.ID,
		JobID:            p.JobID,
		JobDemand:        string(p.JobDemand),
		SequencingPolicy: string(p.SequencingPolicy),
		Steps:            make([]response.StepView, len(p.Steps)),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	for i, s := range p.Steps {
		view.Steps[i] = ToStepView(s)
	}
	return view
}

func ToStepView(s models.JobStep) response.StepView {
	entries, err := s.MachineDetails.Entries()
	if err != nil {
		entries = []models.MachineSnapshot{}
	}
	details := make([]response.MachineDetail, len(entries))
	for i, e := range entries {
		details[i] = toMachineDetail(e)
	}
	return response.StepView{
		ID:             s.ID,
		StepNo:         s.StepNo,
		StepName:       s.StepName,
		Status:         string(s.Status),
		StartDate:      s.StartDate,
		EndDate:        s.EndDate,
		MachineDetails: details,
	}
}

func toMachineDetail(e models.MachineSnapshot) response.MachineDetail {
	return response.MachineDetail{
		MachineID:   e.MachineID,
		Unit:        e.Unit,
		MachineCode: e.MachineCode,
		MachineType: e.MachineType,
		Status:      string(e.Status),
	}
}

func ToAssignment(a models.MachineAssignment) response.Assignment {
	return response.Assignment{
		ID:           a.ID,
		JobStepID:    a.JobStepID,
		MachineID:    a.MachineID,
		MachineCode:  a.MachineCode,
		MachineType:  a.MachineType,
		Unit:         a.Unit,
		Status:       string(a.Status),
		AssignedUser: a.AssignedUser,
		Version:      a.Version,
		Backfilled:   a.Backfilled,
		AssignedAt:   a.AssignedAt,
	}
}

func ToAssignments(rows []models.MachineAssignment) []response.Assignment {
	out := make([]response.Assignment, len(rows))
	for i, r := range rows {
		out[i] = ToAssignment(r)
	}
	return out
}

func ToMachine(m models.Machine) response.Machine {
	return response.Machine{
		ID:          m.ID,
		MachineCode: m.MachineCode,
		MachineType: m.MachineType,
		Unit:        m.Unit,
		Active:      m.Active,
	}
}

func ToDriftReport(r service.DriftReport) response.DriftReport {
	report := response.DriftReport{
		StepID: r.StepID,
		InSync: r.InSync,
	}
	for _, e := range r.SnapshotOnly {
		report.SnapshotOnly = append(report.SnapshotOnly, toMachineDetail(e))
	}
	for _, e := range r.LedgerOnly {
		report.LedgerOnly = append(report.LedgerOnly, toMachineDetail(e))
	}
	for _, m := range r.StatusMismatches {
		report.StatusMismatches = append(report.StatusMismatches, response.StatusMismatch{
			MachineID:      m.MachineID,
			MachineCode:    m.MachineCode,
			SnapshotStatus: string(m.SnapshotStatus),
			LedgerStatus:   string(m.LedgerStatus),
		})
	}
	return report
}

func ToAuditEntries(audits []models.IntegrityAudit) []response.AuditEntry {
	out := make([]response.AuditEntry, len(audits))
	for i, a := range audits {
		out[i] = response.AuditEntry{
			ID:          a.ID,
			JobStepID:   a.JobStepID,
			MachineID:   a.MachineID,
			MachineCode: a.MachineCode,
			Action:      a.Action,
			Detail:      a.Detail,
			CreatedAt:   a.CreatedAt,
		}
	}
	return out
}
