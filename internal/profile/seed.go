package profile

// seedRecords returns the sample profiles installed on first run.
func seedRecords() []Record {
	return []Record{
		{
			ID:        "1",
			Name:      "Sarah Johnson",
			Headline:  "Computer Science Student | Product Management Enthusiast | Data Analytics",
			Location:  "Stanford, CA",
			Education: []string{"Stanford University - Computer Science", "Data Science Specialization"},
			Experience: []Experience{
				{
					Company:     "TechCorp",
					Position:    "Product Management Intern",
					Duration:    "Jun 2024 - Aug 2024",
					Description: "Led user research initiative for mobile app, resulting in 25% increase in user engagement",
				},
				{
					Company:     "StartupXYZ",
					Position:    "Data Analysis Intern",
					Duration:    "Jan 2024 - May 2024",
					Description: "Analyzed user behavior data and created dashboards for product decision making",
				},
			},
			Skills:      []string{"Product Strategy", "Data Analysis", "User Research", "Python", "SQL", "A/B Testing"},
			Connections: 847,
			ProfileURL:  "linkedin.com/in/sarah-johnson-pm",
			Analysis: &Analysis{
				SuitabilityScore:   95,
				MatchedInternships: []string{"Google PM Intern", "Microsoft Azure PM", "Meta Product Intern"},
				StrengthAreas:      []string{"Product Strategy", "Data-Driven Decision Making", "User Research"},
				ImprovementAreas:   []string{"Technical Writing", "Stakeholder Management"},
			},
		},
		{
			ID:        "2",
			Name:      "Alex Chen",
			Headline:  "MBA Student | Product Strategy | Business Development",
			Location:  "Berkeley, CA",
			Education: []string{"UC Berkeley Haas - MBA", "UC Berkeley - Engineering"},
			Experience: []Experience{
				{
					Company:     "Consulting Firm",
					Position:    "Business Analyst",
					Duration:    "Sep 2023 - Dec 2023",
					Description: "Conducted market research and competitive analysis for tech clients",
				},
			},
			Skills:      []string{"Business Strategy", "Market Research", "Competitive Analysis", "Excel", "PowerPoint"},
			Connections: 623,
			ProfileURL:  "linkedin.com/in/alex-chen-mba",
			Analysis: &Analysis{
				SuitabilityScore:   78,
				MatchedInternships: []string{"Airbnb PM Intern", "Uber Strategy Intern", "Tesla Business Intern"},
				StrengthAreas:      []string{"Strategic Thinking", "Market Analysis", "Business Acumen"},
				ImprovementAreas:   []string{"Technical Skills", "Product Development Experience"},
			},
		},
	}
}
