package storage

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skillscan/internal/types"
	apperrors "skillscan/pkg/errors"
)

var errNotInitialized = apperrors.New(apperrors.CodeDBError, "database not initialized")

// SaveRun creates the run or updates it by RunId. Associations are saved
// separately.
func SaveRun(run *Run) error {
	if DB == nil {
		return errNotInitialized
	}
	var existing Run
	result := DB.Where("run_id = ?", run.RunId).First(&existing)
	if result.Error == nil {
		run.Id = existing.Id
		run.CreateTime = existing.CreateTime
		return DB.Omit(clause.Associations).Save(run).Error
	} else if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return DB.Omit(clause.Associations).Create(run).Error
	}
	return result.Error
}

// CreateRunIfMissing inserts run unless a row with the same RunId exists.
// An existing row keeps whatever status the worker already wrote.
func CreateRunIfMissing(run *Run) error {
	if DB == nil {
		return errNotInitialized
	}
	return DB.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}},
		DoNothing: true,
	}).Create(run).Error
}

// UpdateRunStatus changes only the status columns of a run.
func UpdateRunStatus(runID string, status RunStatus, msg, failReason string) error {
	if DB == nil {
		return errNotInitialized
	}
	return DB.Model(&Run{}).
		Where("run_id = ?", runID).
		Updates(map[string]interface{}{
			"status":      status,
			"status_msg":  msg,
			"fail_reason": failReason,
		}).Error
}

// SaveGroupRecord upserts the outcome of one group so partial progress is
// visible before the run completes.
func SaveGroupRecord(rec *GroupRecord) error {
	if DB == nil {
		return errNotInitialized
	}
	return DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}, {Name: "track"}, {Name: "ordinal"}},
		DoUpdates: clause.AssignmentColumns([]string{"frames", "hint", "skill_names", "error"}),
	}).Create(rec).Error
}

// SaveSkills replaces the final skill rows of a run.
func SaveSkills(runID string, skills []types.ExtractedSkill) error {
	if DB == nil {
		return errNotInitialized
	}
	records := make([]SkillRecord, 0, len(skills))
	for i, s := range skills {
		rec, err := NewSkillRecord(runID, i, s)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", runID).Delete(&SkillRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, 100).Error
	})
}

func GetRun(runID string) (*Run, error) {
	if DB == nil {
		return nil, errNotInitialized
	}
	var run Run
	err := DB.
		Preload("Groups", func(db *gorm.DB) *gorm.DB { return db.Order("track, ordinal") }).
		Preload("Skills", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WrapWithDetail(apperrors.CodeNotFound, "run not found", runID, err)
		}
		return nil, apperrors.Wrap(apperrors.CodeDBError, "get run failed", err)
	}
	return &run, nil
}

func GetRunHistory(limit int) ([]Run, error) {
	if DB == nil {
		return nil, errNotInitialized
	}
	var runs []Run
	if err := DB.Order("create_time desc, id desc").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func DeleteRun(runID string) error {
	if DB == nil {
		return errNotInitialized
	}
	return DB.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&SkillRecord{}, &GroupRecord{}, &Run{}} {
			if err := tx.Where("run_id = ?", runID).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkStaleRuns fails every run left queued or running by a previous
// process. Call it on server startup.
func MarkStaleRuns() (int64, error) {
	if DB == nil {
		return 0, errNotInitialized
	}
	result := DB.Model(&Run{}).
		Where("status IN ?", []RunStatus{RunStatusQueued, RunStatusRunning}).
		Updates(map[string]interface{}{
			"status":      RunStatusFailed,
			"fail_reason": "服务重启，任务被中断 Run interrupted by server restart",
			"status_msg":  "任务超时/中断 Run Timeout/Interrupted",
		})
	return result.RowsAffected, result.Error
}
