package docgen

import (
	"sort"

	"jobtrail/internal/database"
)

// FromProfile maps a stored profile (with its collections preloaded) into
// DocumentData. Skills are partitioned by category, collections sorted by
// their stored position, and achievement blocks split into lines.
func FromProfile(profile database.Profile) DocumentData {
	data := DocumentData{
		Contact: Contact{
			Name:        profile.Name,
			Email:       profile.Email,
			Phone:       profile.Phone,
			Location:    profile.Location,
			LinkedInURL: profile.LinkedInURL,
			GitHubURL:   profile.GitHubURL,
		},
		Summary: profile.Summary,
	}

	skills := append([]database.Skill(nil), profile.Skills...)
	sort.SliceStable(skills, func(i, j int) bool { return skills[i].Position < skills[j].Position })
	for _, s := range skills {
		if s.Category == database.SkillSoft {
			data.Skills.Soft = append(data.Skills.Soft, s.Name)
		} else {
			data.Skills.Technical = append(data.Skills.Technical, s.Name)
		}
	}

	experience := append([]database.Experience(nil), profile.Experience...)
	sort.SliceStable(experience, func(i, j int) bool { return experience[i].Position < experience[j].Position })
	for _, e := range experience {
		data.Experience = append(data.Experience, Experience{
			Title:        e.Title,
			Company:      e.Company,
			Location:     e.Location,
			StartDate:    e.StartDate,
			EndDate:      e.EndDate,
			Achievements: SplitLines(e.Achievements),
		})
	}

	education := append([]database.Education(nil), profile.Education...)
	sort.SliceStable(education, func(i, j int) bool { return education[i].Position < education[j].Position })
	for _, e := range education {
		data.Education = append(data.Education, Education{
			School:    e.School,
			Degree:    e.Degree,
			Field:     e.Field,
			StartDate: e.StartDate,
			EndDate:   e.EndDate,
		})
	}

	return data
}
