package dto

import "skillscan/internal/types"

type StartRunReq struct {
	NativeVideo     string `json:"native_video" binding:"required"`
	NativeLang      string `json:"native_lang"`
	TranslatedVideo string `json:"translated_video"`
	TranslatedLang  string `json:"translated_lang"`
	OnlyNew         *bool  `json:"only_new"`
	FramesOnly      bool   `json:"frames_only"`
	KeepFrames      bool   `json:"keep_frames"`
}

type StartRunResData struct {
	RunId string `json:"run_id"`
}

type GetRunReq struct {
	RunId string `uri:"runId" binding:"required"`
}

type GroupOutcome struct {
	Track      string   `json:"track"`
	Ordinal    int      `json:"ordinal"`
	Frames     []string `json:"frames"`
	Hint       string   `json:"hint,omitempty"`
	SkillNames []string `json:"skill_names"`
	Error      string   `json:"error,omitempty"`
}

type GetRunResData struct {
	RunId            string                 `json:"run_id"`
	Status           string                 `json:"status"`
	StatusMsg        string                 `json:"status_msg"`
	FailReason       string                 `json:"fail_reason,omitempty"`
	NativeVideo      string                 `json:"native_video"`
	TranslatedVideo  string                 `json:"translated_video,omitempty"`
	TranslatedError  string                 `json:"translated_error,omitempty"`
	Provider         string                 `json:"provider"`
	NativeGroups     int                    `json:"native_groups"`
	TranslatedGroups int                    `json:"translated_groups"`
	Matched          int                    `json:"matched"`
	ResultPath       string                 `json:"result_path,omitempty"`
	Outcomes         []GroupOutcome         `json:"groups"`
	Results          []types.ExtractedSkill `json:"skills"`
}

type RunSummary struct {
	RunId       string `json:"run_id"`
	Status      string `json:"status"`
	StatusMsg   string `json:"status_msg"`
	NativeVideo string `json:"native_video"`
	Matched     int    `json:"matched"`
	CreateTime  int64  `json:"create_time"`
}
