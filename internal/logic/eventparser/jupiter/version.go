package jupiter

import (
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/pkg/types"
)

// Version Jupiter 程序版本，三个版本的指令布局互不兼容
type Version uint8

const (
	VersionNone Version = iota
	V3
	V4
	V6
)

func (v Version) String() string {
	switch v {
	case V3:
		return "V3"
	case V4:
		return "V4"
	case V6:
		return "V6"
	}
	return "None"
}

// Classify 按程序地址判定 Jupiter 版本，非 Jupiter 返回 VersionNone
func Classify(programID types.Pubkey) Version {
	switch programID {
	case consts.JupiterV3Program:
		return V3
	case consts.JupiterV4Program:
		return V4
	case consts.JupiterV6Program:
		return V6
	}
	return VersionNone
}

// ProgramOf 版本对应的程序地址
func ProgramOf(v Version) (types.Pubkey, bool) {
	switch v {
	case V3:
		return consts.JupiterV3Program, true
	case V4:
		return consts.JupiterV4Program, true
	case V6:
		return consts.JupiterV6Program, true
	}
	return types.Pubkey{}, false
}
