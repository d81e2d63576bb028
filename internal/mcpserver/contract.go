package mcpserver

// NoteFormatContract describes the canonical Org note format that
// LLM consumers should follow when creating or updating notes.
const NoteFormatContract = `#+TITLE: Ansuz Note Format Contract

Every note stored in Ansuz is a plain Org file and MUST follow this structure.

* Structure

#+BEGIN_SRC org
,#+TITLE: Human-readable title
,#+FILETAGS: :tag-one:tag-two:

Optional preamble text before the first headline.

,* TODO [#A] Headline text :tag:
  SCHEDULED: <2025-01-20 Mon 09:00> DEADLINE: <2025-01-24 Fri>
  :PROPERTIES:
  :ID:       4f1c0e0a-5b7e-4d38-9c52-2f8e1f0a6b11
  :END:
  Body text. Link to [[file:other-note.org][another note]] or [[id:4f1c0e0a-5b7e-4d38-9c52-2f8e1f0a6b11]].
#+END_SRC

* Rules

1. =#+TITLE:= is the display name everywhere. Without it the first headline is used.
2. =#+FILETAGS:= holds note-wide tags as =:a:b:=. Headline tags go at the end of the headline line.
3. Tags are lowercase kebab-case (=project-x=, =meeting-notes=) and contain no spaces.
4. Todo keywords are TODO and DONE unless the note declares its own with
   =#+TODO: TODO NEXT | DONE CANCELLED= (keywords after the bar are closed states).
5. A priority cookie =[#A]= comes right after the keyword; only uppercase letters count.
6. The planning line (=SCHEDULED:=, =DEADLINE:=, =CLOSED:=) must be the line directly
   under the headline, and the =:PROPERTIES:= drawer directly under that.
7. Links use =[[file:path.org]]= or =[[file:path.org][description]]= with paths relative
   to the linking note, or =[[id:ID]]= pointing at a headline's =:ID:= property.
8. File paths end with =.org=, use forward slashes and English (Latin) names.
9. Encoding is UTF-8 with a trailing newline.

* Assets & Images

- Upload assets via the =upload_asset= tool. It returns an =orgLink= field ready to paste into the note.
- Assets live in the shared =attachments/= directory (flat, no sub-folders).
- Reference them from notes at the vault root as =[[file:attachments/filename.png]]=.
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.

* Example

#+BEGIN_SRC org
,#+TITLE: Weekly standup 2025-01-20
,#+FILETAGS: :meeting-notes:project-x:

,* Attendees
  Alice, Bob.
  [[file:attachments/standup-2025-01-20.jpg]]

,* TODO [#B] Review the design doc :alice:
  DEADLINE: <2025-01-24 Fri>
  See [[file:project-x/design.org][the design doc]].

,* DONE Update the roadmap
  CLOSED: [2025-01-20 Mon 11:30]
#+END_SRC
`
