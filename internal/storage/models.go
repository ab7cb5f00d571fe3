package storage

import (
	"encoding/json"
	"strings"

	"github.com/jinzhu/copier"

	"skillscan/internal/types"
)

type RunStatus uint8

const (
	RunStatusQueued    RunStatus = 0
	RunStatusRunning   RunStatus = 1
	RunStatusSucceeded RunStatus = 2
	RunStatusFailed    RunStatus = 3
)

func (s RunStatus) String() string {
	switch s {
	case RunStatusQueued:
		return "queued"
	case RunStatusRunning:
		return "running"
	case RunStatusSucceeded:
		return "succeeded"
	case RunStatusFailed:
		return "failed"
	}
	return "unknown"
}

// Run is one extraction over a native video and an optional translated one.
type Run struct {
	Id               uint64        `gorm:"primaryKey;autoIncrement" json:"id"`
	RunId            string        `gorm:"uniqueIndex;size:64" json:"run_id"`
	Status           RunStatus     `gorm:"index" json:"status"`
	StatusMsg        string        `json:"status_msg"`
	FailReason       string        `json:"fail_reason"`
	NativeVideo      string        `json:"native_video"`
	NativeLang       string        `json:"native_lang"`
	TranslatedVideo  string        `json:"translated_video"`
	TranslatedLang   string        `json:"translated_lang"`
	TranslatedError  string        `json:"translated_error,omitempty"`
	OnlyNew          bool          `json:"only_new"`
	Provider         string        `json:"provider"`
	NativeGroups     int           `json:"native_groups"`
	TranslatedGroups int           `json:"translated_groups"`
	Matched          int           `json:"matched"`
	ResultPath       string        `json:"result_path"`
	Groups           []GroupRecord `gorm:"foreignKey:RunId;references:RunId" json:"groups,omitempty"`
	Skills           []SkillRecord `gorm:"foreignKey:RunId;references:RunId" json:"skills,omitempty"`
	CreateTime       int64         `gorm:"autoCreateTime:milli" json:"create_time"`
	UpdateTime       int64         `gorm:"autoUpdateTime:milli" json:"update_time"`
}

// GroupRecord is the persisted outcome of recognising one frame group, saved
// as soon as the group finishes.
type GroupRecord struct {
	Id         uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	RunId      string `gorm:"index:idx_group_run_track_ordinal,unique;size:64" json:"run_id"`
	Track      string `gorm:"index:idx_group_run_track_ordinal,unique;size:16" json:"track"`
	Ordinal    int    `gorm:"index:idx_group_run_track_ordinal,unique" json:"ordinal"`
	Frames     string `json:"frames"`
	Hint       string `json:"hint,omitempty"`
	SkillNames string `json:"skill_names"`
	Error      string `json:"error,omitempty"`
	CreateTime int64  `gorm:"autoCreateTime:milli" json:"create_time"`
}

func NewGroupRecord(runID string, track types.Track, group types.FrameGroup, skills []types.ExtractedSkill, err error) GroupRecord {
	names := make([]string, 0, len(skills))
	for _, s := range skills {
		names = append(names, s.DisplayName())
	}
	rec := GroupRecord{
		RunId:      runID,
		Track:      string(track),
		Ordinal:    group.Ordinal,
		Frames:     strings.Join(group.RecognitionPaths(), "\n"),
		Hint:       group.RecognitionHint,
		SkillNames: strings.Join(names, "\n"),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// SkillRecord is one final skill row of a run, in output order.
type SkillRecord struct {
	Id             uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	RunId          string          `gorm:"index;size:64" json:"run_id"`
	Position       int             `json:"position"`
	NativeName     string          `json:"native_name"`
	TranslatedName string          `json:"translated_name"`
	Kind           types.SkillKind `gorm:"size:16" json:"kind"`
	WeaponCode     *string         `json:"weapon_code"`
	Might          *int            `json:"might"`
	Range          *int            `json:"range"`
	CooldownCount  *int            `json:"cooldown_count"`
	HeroName       *string         `json:"hero_name"`
	StatsJSON      string          `json:"stat_bonuses"`
	Description    string          `json:"description"`
	SourceOrdinal  int             `json:"source_ordinal"`
	Error          string          `json:"error,omitempty"`
}

func NewSkillRecord(runID string, position int, skill types.ExtractedSkill) (SkillRecord, error) {
	var rec SkillRecord
	if err := copier.Copy(&rec, &skill); err != nil {
		return rec, err
	}
	rec.RunId = runID
	rec.Position = position
	rec.Description = strings.Join(skill.DescriptionLines, "\n")
	rec.Error = skill.Err
	if len(skill.StatBonuses) > 0 {
		data, err := json.Marshal(skill.StatBonuses)
		if err != nil {
			return rec, err
		}
		rec.StatsJSON = string(data)
	}
	return rec, nil
}

// Skill converts the row back into the pipeline's record type.
func (r SkillRecord) Skill() types.ExtractedSkill {
	var s types.ExtractedSkill
	_ = copier.Copy(&s, &r)
	s.Err = r.Error
	if r.Description != "" {
		s.DescriptionLines = strings.Split(r.Description, "\n")
	}
	if r.StatsJSON != "" {
		_ = json.Unmarshal([]byte(r.StatsJSON), &s.StatBonuses)
	}
	return s
}
